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

// Package jks implements the binary trust-store format: a length-prefixed
// sequence of entries followed by a keyed SHA-1 integrity digest over the
// whole preceding byte stream, with private keys protected by the format's
// own password-derived stream cipher. Files are byte-compatible with the
// standard Java keytool.
//
// The integrity digest is keyed on the store password, so the format cannot
// distinguish a wrong password from a tampered stream: a digest mismatch is
// reported as ErrBadPassword when a non-empty password was supplied and as
// ErrIntegrity otherwise. The digest is always recomputed and compared
// before any entry is exposed; a mismatch is a hard failure, never a
// partial read.
//
// Aliases are case-insensitive in this format and are folded to lower case
// internally.
package jks

import (
	"bytes"
	"crypto/sha1"
	"crypto/x509"
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/jeremyhahn/go-certwatch/pkg/store"
	"github.com/jeremyhahn/go-certwatch/pkg/types"
)

const (
	magic          = 0xFEEDFEED
	version2       = 2
	tagPrivateKey  = 1
	tagTrustedCert = 2
	certType       = "X.509"
	digestSize     = sha1.Size

	// whitener is mixed into the integrity digest between the password and
	// the stream, as the reference implementation does.
	whitener = "Mighty Aphrodite"

	filePerms = 0600
)

// JKS is an in-memory binary trust-store snapshot.
type JKS struct {
	entries map[string]*types.StoreEntry
}

// New creates an empty store.
func New() *JKS {
	return &JKS{entries: make(map[string]*types.StoreEntry)}
}

// Open reads and decodes the store at path. The integrity digest is
// verified before any entry is exposed; on any failure no store is
// returned.
func Open(path string, password types.Password) (*JKS, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jks: open %s: %w", path, err)
	}
	s, err := Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("jks: open %s: %w", path, err)
	}
	return s, nil
}

// Decode decodes a store from its serialized bytes.
func Decode(data []byte, password types.Password) (*JKS, error) {
	if len(data) < 12+digestSize {
		return nil, fmt.Errorf("%w: input too short", store.ErrMalformedStore)
	}

	passwd := passwordBytes(password)

	// The header is parsed first so input that is not this format at all
	// reports ErrMalformedStore rather than a password failure. The digest
	// check still precedes every entry: nothing past the header is parsed,
	// let alone exposed, from a stream that fails it.
	content := data[:len(data)-digestSize]
	r := &reader{data: content}
	if m := r.u32(); m != magic {
		return nil, fmt.Errorf("%w: bad magic %#x", store.ErrMalformedStore, m)
	}
	ver := r.u32()
	if ver != 1 && ver != version2 {
		return nil, fmt.Errorf("%w: unsupported version %d", store.ErrMalformedStore, ver)
	}
	count := r.u32()

	want := data[len(data)-digestSize:]
	if !bytes.Equal(computeDigest(passwd, content), want) {
		if len(passwd) > 0 {
			return nil, store.ErrBadPassword
		}
		return nil, store.ErrIntegrity
	}

	s := New()
	for i := uint32(0); i < count && r.err == nil; i++ {
		tag := r.u32()
		alias := strings.ToLower(r.utf())
		created := time.UnixMilli(int64(r.u64())).UTC()

		switch tag {
		case tagPrivateKey:
			encrypted := r.bytes(int(r.u32()))
			chainLen := r.u32()
			chain := make([]*x509.Certificate, 0, chainLen)
			for j := uint32(0); j < chainLen && r.err == nil; j++ {
				chain = append(chain, r.cert(ver))
			}
			if r.err != nil {
				break
			}
			keyDER, err := decryptKey(encrypted, passwd)
			if err != nil {
				return nil, err
			}
			key, err := x509.ParsePKCS8PrivateKey(keyDER)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %q: %v", store.ErrMalformedStore, alias, err)
			}
			s.entries[alias] = &types.StoreEntry{
				Alias:        alias,
				Kind:         types.PrivateKeyEntry,
				Chain:        chain,
				Key:          key,
				CreationTime: created,
			}

		case tagTrustedCert:
			c := r.cert(ver)
			if r.err != nil {
				break
			}
			s.entries[alias] = &types.StoreEntry{
				Alias:        alias,
				Kind:         types.TrustedCertificate,
				Chain:        []*x509.Certificate{c},
				CreationTime: created,
			}

		default:
			return nil, fmt.Errorf("%w: unknown entry tag %d", store.ErrMalformedStore, tag)
		}
	}

	if r.err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrMalformedStore, r.err)
	}
	if r.off != len(r.data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", store.ErrMalformedStore, len(r.data)-r.off)
	}
	return s, nil
}

// Format returns store.FormatJKS.
func (s *JKS) Format() store.Format {
	return store.FormatJKS
}

// ListAliases returns every alias in the store, sorted.
func (s *JKS) ListAliases() []string {
	aliases := make([]string, 0, len(s.entries))
	for alias := range s.entries {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// GetEntry returns the entry for the alias. Lookup is case-insensitive.
func (s *JKS) GetEntry(alias string) (*types.StoreEntry, bool) {
	entry, ok := s.entries[strings.ToLower(alias)]
	return entry, ok
}

// PutEntry adds or replaces the entry under the alias, last write wins.
func (s *JKS) PutEntry(alias string, entry *types.StoreEntry) error {
	if err := store.ValidateEntry(entry); err != nil {
		return fmt.Errorf("jks: put %q: %w", alias, err)
	}
	alias = strings.ToLower(alias)
	e := *entry
	e.Alias = alias
	if e.CreationTime.IsZero() {
		e.CreationTime = time.Now().UTC()
	}
	s.entries[alias] = &e
	return nil
}

// RemoveEntry deletes the alias and reports whether it existed.
func (s *JKS) RemoveEntry(alias string) bool {
	alias = strings.ToLower(alias)
	if _, ok := s.entries[alias]; !ok {
		return false
	}
	delete(s.entries, alias)
	return true
}

// Save encodes the store and writes it atomically to path.
func (s *JKS) Save(path string, password types.Password) error {
	data, err := s.Encode(password)
	if err != nil {
		return fmt.Errorf("jks: save %s: %w", path, err)
	}
	return store.WriteFileAtomic(path, data, filePerms)
}

// Encode serializes the store, protecting private keys and appending the
// keyed integrity digest.
func (s *JKS) Encode(password types.Password) ([]byte, error) {
	passwd := passwordBytes(password)

	var buf bytes.Buffer
	writeU32(&buf, magic)
	writeU32(&buf, version2)
	writeU32(&buf, uint32(len(s.entries)))

	for _, alias := range s.ListAliases() {
		entry := s.entries[alias]
		switch entry.Kind {
		case types.PrivateKeyEntry:
			writeU32(&buf, tagPrivateKey)
			writeUTF(&buf, alias)
			writeU64(&buf, uint64(entry.CreationTime.UnixMilli()))
			keyDER, err := x509.MarshalPKCS8PrivateKey(entry.Key)
			if err != nil {
				return nil, fmt.Errorf("jks: marshal key %q: %w", alias, err)
			}
			encrypted, err := encryptKey(keyDER, passwd)
			if err != nil {
				return nil, fmt.Errorf("jks: protect key %q: %w", alias, err)
			}
			writeU32(&buf, uint32(len(encrypted)))
			buf.Write(encrypted)
			writeU32(&buf, uint32(len(entry.Chain)))
			for _, c := range entry.Chain {
				writeUTF(&buf, certType)
				writeU32(&buf, uint32(len(c.Raw)))
				buf.Write(c.Raw)
			}

		case types.TrustedCertificate:
			writeU32(&buf, tagTrustedCert)
			writeUTF(&buf, alias)
			writeU64(&buf, uint64(entry.CreationTime.UnixMilli()))
			writeUTF(&buf, certType)
			writeU32(&buf, uint32(len(entry.Chain[0].Raw)))
			buf.Write(entry.Chain[0].Raw)

		default:
			return nil, fmt.Errorf("jks: entry %q: %w", alias, store.ErrUnsupportedEntryKind)
		}
	}

	buf.Write(computeDigest(passwd, buf.Bytes()))
	return buf.Bytes(), nil
}

// computeDigest returns the keyed integrity digest over the byte stream:
// SHA-1 of UTF-16BE(password) followed by the whitener and the stream.
func computeDigest(passwd, content []byte) []byte {
	h := sha1.New()
	h.Write(passwd)
	h.Write([]byte(whitener))
	h.Write(content)
	return h.Sum(nil)
}

// passwordBytes converts the store password to the UTF-16BE byte sequence
// the format keys its digest and key protector with. A nil password maps
// to an empty sequence.
func passwordBytes(password types.Password) []byte {
	if password == nil {
		return nil
	}
	raw := password.Bytes()
	if len(raw) == 0 {
		return nil
	}
	codes := utf16.Encode([]rune(string(raw)))
	out := make([]byte, 0, len(codes)*2)
	for _, c := range codes {
		out = append(out, byte(c>>8), byte(c))
	}
	return out
}

// reader is a bounds-checked big-endian stream reader. The first error
// sticks; callers check err once after a run of reads.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) u32() uint32 {
	b := r.bytes(4)
	if r.err != nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.bytes(8)
	if r.err != nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) u16() uint16 {
	b := r.bytes(2)
	if r.err != nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = fmt.Errorf("truncated at offset %d", r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) utf() string {
	n := r.u16()
	return string(r.bytes(int(n)))
}

// cert reads one certificate record. Version 1 streams omit the type
// string; version 2 carries it.
func (r *reader) cert(ver uint32) *x509.Certificate {
	if ver == version2 {
		if t := r.utf(); r.err == nil && t != certType {
			r.err = fmt.Errorf("unsupported certificate type %q", t)
			return nil
		}
	}
	der := r.bytes(int(r.u32()))
	if r.err != nil {
		return nil
	}
	c, err := x509.ParseCertificate(der)
	if err != nil {
		r.err = fmt.Errorf("parse certificate: %v", err)
		return nil
	}
	return c
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// writeUTF writes a length-prefixed string. Aliases and type names are
// ASCII in practice, where plain UTF-8 coincides with the modified UTF-8
// the reference implementation uses.
func writeUTF(buf *bytes.Buffer, s string) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(len(s)))
	buf.Write(b[:])
	buf.WriteString(s)
}

// Verify interface compliance at compile time
var _ store.Store = (*JKS)(nil)
