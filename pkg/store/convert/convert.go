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

// Package convert moves store contents between formats. A conversion opens
// the source, copies every entry into an empty destination store of the
// target format, and saves the destination atomically. Entries the target
// format cannot represent fail the conversion; nothing is silently dropped.
package convert

import (
	"fmt"

	"github.com/jeremyhahn/go-certwatch/pkg/logging"
	"github.com/jeremyhahn/go-certwatch/pkg/store"
	"github.com/jeremyhahn/go-certwatch/pkg/store/jks"
	"github.com/jeremyhahn/go-certwatch/pkg/store/pemdir"
	"github.com/jeremyhahn/go-certwatch/pkg/store/pkcs12"
	"github.com/jeremyhahn/go-certwatch/pkg/types"
)

// OpenStore opens the store at path in the given format. FormatPEMDir
// expects path to be a directory; the password is ignored for that format.
func OpenStore(path string, format store.Format, password types.Password) (store.Store, error) {
	switch format {
	case store.FormatJKS:
		return jks.Open(path, password)
	case store.FormatPKCS12:
		return pkcs12.Open(path, password)
	case store.FormatPEMDir:
		return pemdir.Open(path, password)
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnsupportedFormat, format)
	}
}

// NewStore creates an empty in-memory store of the given format.
func NewStore(format store.Format) (store.Store, error) {
	switch format {
	case store.FormatJKS:
		return jks.New(), nil
	case store.FormatPKCS12:
		return pkcs12.New(), nil
	case store.FormatPEMDir:
		return pemdir.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnsupportedFormat, format)
	}
}

// Converter copies stores between formats.
type Converter struct {
	logger *logging.Logger
}

// NewConverter creates a converter logging through the given logger.
func NewConverter(logger *logging.Logger) *Converter {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Converter{logger: logger}
}

// Convert opens the source store, copies every entry into a new store of
// the output format, and saves it to outputPath. The same password opens
// the source and protects the destination. The first entry the target
// format cannot hold aborts the conversion with an error naming its alias.
func (c *Converter) Convert(inputPath string, inFormat store.Format, outputPath string, outFormat store.Format, password types.Password) error {
	src, err := OpenStore(inputPath, inFormat, password)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	dst, err := NewStore(outFormat)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	aliases := src.ListAliases()
	for _, alias := range aliases {
		entry, ok := src.GetEntry(alias)
		if !ok {
			return fmt.Errorf("convert: entry %q disappeared from source store", alias)
		}
		if err := dst.PutEntry(alias, entry); err != nil {
			return fmt.Errorf("convert: entry %q: %w", alias, err)
		}
		c.logger.Debugf("converted entry %q (%s)", alias, entry.Kind)
	}

	if err := dst.Save(outputPath, password); err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	c.logger.Infof("converted %d entries from %s (%s) to %s (%s)",
		len(aliases), inputPath, inFormat, outputPath, outFormat)
	return nil
}

// Convert is a convenience wrapper using the default logger.
func Convert(inputPath string, inFormat store.Format, outputPath string, outFormat store.Format, password types.Password) error {
	return NewConverter(nil).Convert(inputPath, inFormat, outputPath, outFormat, password)
}
