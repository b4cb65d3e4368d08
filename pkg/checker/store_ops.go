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

package checker

import (
	"crypto/x509"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-certwatch/internal/password"
	"github.com/jeremyhahn/go-certwatch/pkg/encoding"
	"github.com/jeremyhahn/go-certwatch/pkg/metrics"
	"github.com/jeremyhahn/go-certwatch/pkg/store"
	"github.com/jeremyhahn/go-certwatch/pkg/store/convert"
	"github.com/jeremyhahn/go-certwatch/pkg/types"
	"github.com/jeremyhahn/go-certwatch/pkg/validation"
)

// OpenStore opens the store at path in the given format.
func (c *Checker) OpenStore(path string, format store.Format, password types.Password) (store.Store, error) {
	s, err := convert.OpenStore(path, format, password)
	if err != nil {
		metrics.RecordStoreOperation(metrics.OpOpen, format.String(), metrics.StatusError)
		return nil, err
	}
	metrics.RecordStoreOperation(metrics.OpOpen, format.String(), metrics.StatusSuccess)
	c.logger.Debugf("opened %s store %s with %d entries", format, path, len(s.ListAliases()))
	return s, nil
}

// NewStore creates an empty in-memory store of the given format.
func (c *Checker) NewStore(format store.Format) (store.Store, error) {
	return convert.NewStore(format)
}

// ListAliases returns the store's aliases, sorted.
func (c *Checker) ListAliases(s store.Store) []string {
	return s.ListAliases()
}

// AddCertificate decodes certBytes (PEM or DER, detected) and stores it as
// a trusted certificate under the alias. Adding the same alias twice is
// last-write-wins: exactly one entry remains.
func (c *Checker) AddCertificate(s store.Store, alias string, certBytes []byte) error {
	decoded, err := encoding.DecodeCertificate(certBytes, encoding.FormatAuto)
	if err != nil {
		metrics.RecordStoreOperation(metrics.OpAdd, s.Format().String(), metrics.StatusError)
		return fmt.Errorf("checker: add %q: %w", alias, err)
	}

	entry := &types.StoreEntry{
		Alias:        alias,
		Kind:         types.TrustedCertificate,
		Chain:        []*x509.Certificate{decoded},
		CreationTime: time.Now().UTC(),
	}
	if err := s.PutEntry(alias, entry); err != nil {
		metrics.RecordStoreOperation(metrics.OpAdd, s.Format().String(), metrics.StatusError)
		return fmt.Errorf("checker: add %q: %w", alias, err)
	}
	metrics.RecordStoreOperation(metrics.OpAdd, s.Format().String(), metrics.StatusSuccess)
	return nil
}

// AddKeyEntry decodes a PEM private key and its certificate chain, leaf
// first, and stores them under the alias as a private key entry. The key
// password decrypts the key when it is encrypted PKCS#8; the store rejects
// a key that does not match the leaf.
func (c *Checker) AddKeyEntry(s store.Store, alias string, keyPEM []byte, chainBytes [][]byte, keyPassword types.Password) error {
	key, err := encoding.DecodePrivateKeyPEM(keyPEM, passwordBytes(keyPassword))
	if err != nil {
		metrics.RecordStoreOperation(metrics.OpAdd, s.Format().String(), metrics.StatusError)
		return fmt.Errorf("checker: add key %q: %w", alias, err)
	}

	chain := make([]*x509.Certificate, 0, len(chainBytes))
	for i, raw := range chainBytes {
		decoded, err := encoding.DecodeCertificate(raw, encoding.FormatAuto)
		if err != nil {
			metrics.RecordStoreOperation(metrics.OpAdd, s.Format().String(), metrics.StatusError)
			return fmt.Errorf("checker: add key %q: chain[%d]: %w", alias, i, err)
		}
		chain = append(chain, decoded)
	}

	entry := &types.StoreEntry{
		Alias:        alias,
		Kind:         types.PrivateKeyEntry,
		Chain:        chain,
		Key:          key,
		CreationTime: time.Now().UTC(),
	}
	if err := s.PutEntry(alias, entry); err != nil {
		metrics.RecordStoreOperation(metrics.OpAdd, s.Format().String(), metrics.StatusError)
		return fmt.Errorf("checker: add key %q: %w", alias, err)
	}
	metrics.RecordStoreOperation(metrics.OpAdd, s.Format().String(), metrics.StatusSuccess)
	return nil
}

// RemoveAlias removes the alias from the store; a missing alias is
// store.ErrAliasNotFound.
func (c *Checker) RemoveAlias(s store.Store, alias string) error {
	if !s.RemoveEntry(alias) {
		metrics.RecordStoreOperation(metrics.OpRemove, s.Format().String(), metrics.StatusError)
		return fmt.Errorf("checker: remove %q: %w", alias, store.ErrAliasNotFound)
	}
	metrics.RecordStoreOperation(metrics.OpRemove, s.Format().String(), metrics.StatusSuccess)
	return nil
}

// ExportEntry returns the alias's leaf certificate in the requested
// encoding. Private key material is never exported.
func (c *Checker) ExportEntry(s store.Store, alias string, format encoding.Format) ([]byte, error) {
	entry, ok := s.GetEntry(alias)
	if !ok {
		metrics.RecordStoreOperation(metrics.OpExport, s.Format().String(), metrics.StatusError)
		return nil, fmt.Errorf("checker: export %q: %w", alias, store.ErrAliasNotFound)
	}
	data, err := encoding.EncodeCertificate(entry.Leaf(), format)
	if err != nil {
		metrics.RecordStoreOperation(metrics.OpExport, s.Format().String(), metrics.StatusError)
		return nil, fmt.Errorf("checker: export %q: %w", alias, err)
	}
	metrics.RecordStoreOperation(metrics.OpExport, s.Format().String(), metrics.StatusSuccess)
	return data, nil
}

// ExportKey returns the alias's private key as encrypted PKCS#8 PEM. The
// key password is mandatory: keys never leave the store in the clear.
func (c *Checker) ExportKey(s store.Store, alias string, keyPassword types.Password) ([]byte, error) {
	passwd := passwordBytes(keyPassword)
	if len(passwd) == 0 {
		metrics.RecordStoreOperation(metrics.OpExport, s.Format().String(), metrics.StatusError)
		return nil, fmt.Errorf("checker: export key %q: %w", alias, password.ErrEmptyPassword)
	}

	entry, ok := s.GetEntry(alias)
	if !ok {
		metrics.RecordStoreOperation(metrics.OpExport, s.Format().String(), metrics.StatusError)
		return nil, fmt.Errorf("checker: export key %q: %w", alias, store.ErrAliasNotFound)
	}
	if entry.Kind != types.PrivateKeyEntry {
		metrics.RecordStoreOperation(metrics.OpExport, s.Format().String(), metrics.StatusError)
		return nil, fmt.Errorf("checker: export key %q: %w", alias, store.ErrUnsupportedEntryKind)
	}

	data, err := encoding.EncodePrivateKeyPEM(entry.Key, passwd)
	if err != nil {
		metrics.RecordStoreOperation(metrics.OpExport, s.Format().String(), metrics.StatusError)
		return nil, fmt.Errorf("checker: export key %q: %w", alias, err)
	}
	metrics.RecordStoreOperation(metrics.OpExport, s.Format().String(), metrics.StatusSuccess)
	return data, nil
}

// passwordBytes unwraps an optional password.
func passwordBytes(p types.Password) []byte {
	if p == nil {
		return nil
	}
	return p.Bytes()
}

// SaveStore persists the store to path atomically.
func (c *Checker) SaveStore(s store.Store, path string, password types.Password) error {
	if err := s.Save(path, password); err != nil {
		metrics.RecordStoreOperation(metrics.OpSave, s.Format().String(), metrics.StatusError)
		return err
	}
	metrics.RecordStoreOperation(metrics.OpSave, s.Format().String(), metrics.StatusSuccess)
	c.logger.Debugf("saved %s store to %s", s.Format(), path)
	return nil
}

// Convert copies every entry of the store at inputPath into a new store of
// outFormat at outputPath, preserving alias and kind.
func (c *Checker) Convert(inputPath string, inFormat store.Format, outputPath string, outFormat store.Format, password types.Password) error {
	err := convert.NewConverter(c.logger).Convert(inputPath, inFormat, outputPath, outFormat, password)
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	metrics.RecordStoreOperation(metrics.OpConvert, outFormat.String(), status)
	return err
}

// ValidateCertificate decodes the leaf and its presented chain and runs
// chain validation against the checker's anchors at the current time.
func (c *Checker) ValidateCertificate(certBytes []byte, chainBytes [][]byte, anchors []*x509.Certificate) (validation.Result, error) {
	leaf, err := encoding.DecodeCertificate(certBytes, encoding.FormatAuto)
	if err != nil {
		return validation.Result{}, fmt.Errorf("checker: validate: leaf: %w", err)
	}

	presented := make([]*x509.Certificate, 0, len(chainBytes))
	for i, raw := range chainBytes {
		decoded, err := encoding.DecodeCertificate(raw, encoding.FormatAuto)
		if err != nil {
			return validation.Result{}, fmt.Errorf("checker: validate: chain[%d]: %w", i, err)
		}
		presented = append(presented, decoded)
	}

	if anchors == nil {
		anchors = c.anchors
	}
	return validation.Validate(leaf, presented, anchors, time.Now()), nil
}
