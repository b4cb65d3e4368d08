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

// Package pemdir implements the directory store format: one PEM file per
// trusted certificate, aliased by file name without extension. The format
// is unencrypted and carries certificates only; passwords are ignored and
// private key entries are rejected.
package pemdir

import (
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeremyhahn/go-certwatch/pkg/encoding"
	"github.com/jeremyhahn/go-certwatch/pkg/store"
	"github.com/jeremyhahn/go-certwatch/pkg/types"
)

const (
	filePerms = 0644
	dirPerms  = 0755

	// certExt is the extension written for new entries. .pem files are
	// also recognized when loading.
	certExt = ".crt"
	pemExt  = ".pem"

	// stagingExt and backupExt name the sibling directories used during a
	// save: entries are staged under <dir>.tmp-* and the previous directory
	// is parked at <dir>.old until the swap completes.
	stagingExt = ".tmp-"
	backupExt  = ".old"
)

// PEMDir is an in-memory snapshot of a directory of PEM certificates.
type PEMDir struct {
	entries map[string]*types.StoreEntry
}

// New creates an empty store.
func New() *PEMDir {
	return &PEMDir{entries: make(map[string]*types.StoreEntry)}
}

// Open loads every .crt and .pem file in dir. Files that do not decode as
// a PEM certificate fail the open; subdirectories and other extensions are
// skipped.
func Open(dir string, _ types.Password) (*PEMDir, error) {
	infos, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("pemdir: open %s: %w", dir, err)
	}

	s := New()
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		name := info.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != certExt && ext != pemExt {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("pemdir: open %s: %w", path, err)
		}
		c, err := encoding.DecodeCertificate(data, encoding.FormatPEM)
		if err != nil {
			return nil, fmt.Errorf("pemdir: open %s: %w", path, err)
		}

		fi, err := info.Info()
		created := time.Now().UTC()
		if err == nil {
			created = fi.ModTime().UTC()
		}

		alias := strings.TrimSuffix(name, filepath.Ext(name))
		s.entries[alias] = &types.StoreEntry{
			Alias:        alias,
			Kind:         types.TrustedCertificate,
			Chain:        []*x509.Certificate{c},
			CreationTime: created,
		}
	}
	return s, nil
}

// Format returns store.FormatPEMDir.
func (s *PEMDir) Format() store.Format {
	return store.FormatPEMDir
}

// ListAliases returns every alias in the store, sorted.
func (s *PEMDir) ListAliases() []string {
	aliases := make([]string, 0, len(s.entries))
	for alias := range s.entries {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// GetEntry returns the entry for the alias.
func (s *PEMDir) GetEntry(alias string) (*types.StoreEntry, bool) {
	entry, ok := s.entries[alias]
	return entry, ok
}

// PutEntry adds or replaces the entry under the alias, last write wins.
// The format cannot carry private keys, so key entries are rejected with
// ErrUnsupportedEntryKind.
func (s *PEMDir) PutEntry(alias string, entry *types.StoreEntry) error {
	if err := store.ValidateEntry(entry); err != nil {
		return fmt.Errorf("pemdir: put %q: %w", alias, err)
	}
	if entry.Kind != types.TrustedCertificate {
		return fmt.Errorf("pemdir: put %q: %s entries cannot be stored as PEM files: %w",
			alias, entry.Kind, store.ErrUnsupportedEntryKind)
	}
	if alias == "" || alias != filepath.Base(alias) || strings.ContainsAny(alias, "/\\") {
		return fmt.Errorf("pemdir: put %q: alias must be a bare file name: %w",
			alias, types.ErrInvalidEntry)
	}

	e := *entry
	e.Alias = alias
	if e.CreationTime.IsZero() {
		e.CreationTime = time.Now().UTC()
	}
	s.entries[alias] = &e
	return nil
}

// RemoveEntry deletes the alias and reports whether it existed.
func (s *PEMDir) RemoveEntry(alias string) bool {
	if _, ok := s.entries[alias]; !ok {
		return false
	}
	delete(s.entries, alias)
	return true
}

// Save writes the store to dir, creating it when missing. The entries are
// staged into a temporary sibling directory that is swapped into place, so
// an error mid-save never leaves dir half-updated and files for aliases no
// longer in the store never survive the swap. The password is ignored.
func (s *PEMDir) Save(dir string, _ types.Password) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, dirPerms); err != nil {
		return fmt.Errorf("pemdir: save %s: %w", dir, err)
	}

	staging, err := os.MkdirTemp(parent, filepath.Base(dir)+stagingExt)
	if err != nil {
		return fmt.Errorf("pemdir: save %s: %w", dir, err)
	}
	defer os.RemoveAll(staging)

	for alias, entry := range s.entries {
		data, err := encoding.EncodeCertificate(entry.Chain[0], encoding.FormatPEM)
		if err != nil {
			return fmt.Errorf("pemdir: save %q: %w", alias, err)
		}
		path := filepath.Join(staging, alias+certExt)
		if err := os.WriteFile(path, data, filePerms); err != nil {
			return fmt.Errorf("pemdir: save %q: %w", alias, err)
		}
	}

	// Swap the staged directory into place. The previous directory is moved
	// aside first so the rename cannot collide with it, and restored when
	// the swap fails.
	previous := dir + backupExt
	if err := os.RemoveAll(previous); err != nil {
		return fmt.Errorf("pemdir: save %s: %w", dir, err)
	}
	if err := os.Rename(dir, previous); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pemdir: save %s: %w", dir, err)
	}
	if err := os.Rename(staging, dir); err != nil {
		os.Rename(previous, dir)
		return fmt.Errorf("pemdir: save %s: %w", dir, err)
	}
	if err := os.RemoveAll(previous); err != nil {
		return fmt.Errorf("pemdir: save %s: %w", dir, err)
	}
	return nil
}

// Verify interface compliance at compile time
var _ store.Store = (*PEMDir)(nil)
