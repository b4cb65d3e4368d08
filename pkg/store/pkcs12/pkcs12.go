// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-certwatch.
//
// go-certwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package pkcs12 implements the encrypted container store format. Private
// keys and their chains are carried as shrouded safe bags; the whole
// container is protected by one password, so entry passwords equal the
// store-open password.
//
// The container holds at most one private key entry alongside any number of
// trusted certificates. Friendly names are written for trusted
// certificates, but the underlying decoder does not expose them, so aliases
// of decoded entries derive from the subject common name.
package pkcs12

import (
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/jeremyhahn/go-certwatch/pkg/cert"
	"github.com/jeremyhahn/go-certwatch/pkg/store"
	"github.com/jeremyhahn/go-certwatch/pkg/types"
)

const filePerms = 0600

// PKCS12 is an in-memory encrypted-container store snapshot.
type PKCS12 struct {
	entries  map[string]*types.StoreEntry
	keyAlias string
}

// New creates an empty store.
func New() *PKCS12 {
	return &PKCS12{entries: make(map[string]*types.StoreEntry)}
}

// Open reads and decodes the container at path. On any failure no store is
// returned; a wrong container password surfaces as store.ErrBadPassword.
func Open(path string, password types.Password) (*PKCS12, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pkcs12: open %s: %w", path, err)
	}
	s, err := Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("pkcs12: open %s: %w", path, err)
	}
	return s, nil
}

// Decode decodes a container from its serialized bytes.
func Decode(data []byte, password types.Password) (*PKCS12, error) {
	pw := passwordString(password)
	s := New()

	key, leaf, caCerts, err := pkcs12.DecodeChain(data, pw)
	if err == nil {
		alias := aliasFor(leaf, "key")
		chain := make([]*x509.Certificate, 0, len(caCerts)+1)
		chain = append(chain, leaf)
		chain = append(chain, caCerts...)
		s.entries[alias] = &types.StoreEntry{
			Alias:        alias,
			Kind:         types.PrivateKeyEntry,
			Chain:        chain,
			Key:          key,
			CreationTime: time.Now().UTC(),
		}
		s.keyAlias = alias
		return s, nil
	}
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return nil, store.ErrBadPassword
	}

	// Not a key container; try a certificate-only trust store.
	certs, err := pkcs12.DecodeTrustStore(data, pw)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, store.ErrBadPassword
		}
		return nil, fmt.Errorf("%w: %v", store.ErrMalformedStore, err)
	}

	for i, c := range certs {
		base := aliasFor(c, fmt.Sprintf("cert-%d", i))
		alias := base
		for n := 1; ; n++ {
			if _, taken := s.entries[alias]; !taken {
				break
			}
			alias = fmt.Sprintf("%s-%d", base, n)
		}
		s.entries[alias] = &types.StoreEntry{
			Alias:        alias,
			Kind:         types.TrustedCertificate,
			Chain:        []*x509.Certificate{c},
			CreationTime: time.Now().UTC(),
		}
	}
	return s, nil
}

// Format returns store.FormatPKCS12.
func (s *PKCS12) Format() store.Format {
	return store.FormatPKCS12
}

// ListAliases returns every alias in the store, sorted.
func (s *PKCS12) ListAliases() []string {
	aliases := make([]string, 0, len(s.entries))
	for alias := range s.entries {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// GetEntry returns the entry for the alias, case-sensitively.
func (s *PKCS12) GetEntry(alias string) (*types.StoreEntry, bool) {
	entry, ok := s.entries[alias]
	return entry, ok
}

// PutEntry adds or replaces the entry under the alias, last write wins.
// The container can hold at most one private key entry; a second one under
// a different alias fails with ErrUnsupportedEntryKind.
func (s *PKCS12) PutEntry(alias string, entry *types.StoreEntry) error {
	if err := store.ValidateEntry(entry); err != nil {
		return fmt.Errorf("pkcs12: put %q: %w", alias, err)
	}
	if entry.Kind == types.PrivateKeyEntry && s.keyAlias != "" && s.keyAlias != alias {
		return fmt.Errorf("pkcs12: put %q: container already holds key entry %q: %w",
			alias, s.keyAlias, store.ErrUnsupportedEntryKind)
	}

	e := *entry
	e.Alias = alias
	if e.CreationTime.IsZero() {
		e.CreationTime = time.Now().UTC()
	}
	if prev, ok := s.entries[alias]; ok && prev.Kind == types.PrivateKeyEntry && e.Kind != types.PrivateKeyEntry {
		s.keyAlias = ""
	}
	if e.Kind == types.PrivateKeyEntry {
		s.keyAlias = alias
	}
	s.entries[alias] = &e
	return nil
}

// RemoveEntry deletes the alias and reports whether it existed.
func (s *PKCS12) RemoveEntry(alias string) bool {
	if _, ok := s.entries[alias]; !ok {
		return false
	}
	if s.keyAlias == alias {
		s.keyAlias = ""
	}
	delete(s.entries, alias)
	return true
}

// Save encodes the container and writes it atomically to path.
func (s *PKCS12) Save(path string, password types.Password) error {
	data, err := s.Encode(password)
	if err != nil {
		return fmt.Errorf("pkcs12: save %s: %w", path, err)
	}
	return store.WriteFileAtomic(path, data, filePerms)
}

// Encode serializes the container. With a key entry present the key, its
// chain, and every trusted certificate are bundled together; a
// certificate-only store is written as a trust store with friendly names.
func (s *PKCS12) Encode(password types.Password) ([]byte, error) {
	pw := passwordString(password)

	if s.keyAlias != "" {
		keyEntry := s.entries[s.keyAlias]
		caCerts := append([]*x509.Certificate(nil), keyEntry.Chain[1:]...)
		for _, alias := range s.ListAliases() {
			if alias == s.keyAlias {
				continue
			}
			caCerts = append(caCerts, s.entries[alias].Chain[0])
		}
		data, err := pkcs12.Modern.Encode(keyEntry.Key, keyEntry.Chain[0], caCerts, pw)
		if err != nil {
			return nil, fmt.Errorf("pkcs12: encode key entry %q: %w", s.keyAlias, err)
		}
		return data, nil
	}

	entries := make([]pkcs12.TrustStoreEntry, 0, len(s.entries))
	for _, alias := range s.ListAliases() {
		entries = append(entries, pkcs12.TrustStoreEntry{
			Cert:         s.entries[alias].Chain[0],
			FriendlyName: alias,
		})
	}
	data, err := pkcs12.Modern.EncodeTrustStoreEntries(entries, pw)
	if err != nil {
		return nil, fmt.Errorf("pkcs12: encode trust store: %w", err)
	}
	return data, nil
}

// aliasFor derives a decoded entry's alias from the certificate subject
// common name, with a positional fallback for certificates without one.
func aliasFor(c *x509.Certificate, fallback string) string {
	if cn := cert.CommonName(c); cn != "" {
		return cn
	}
	return fallback
}

func passwordString(password types.Password) string {
	if password == nil {
		return ""
	}
	pw, err := password.String()
	if err != nil {
		return ""
	}
	return pw
}

// Verify interface compliance at compile time
var _ store.Store = (*PKCS12)(nil)
