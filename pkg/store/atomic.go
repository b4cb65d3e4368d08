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

package store

import (
	"fmt"
	"os"
)

// WriteFileAtomic writes data to a temporary file next to filename and
// renames it into place. A failure at any point leaves the original file
// untouched.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmpname := filename + ".tmp"
	if err := os.WriteFile(tmpname, data, perm); err != nil {
		return fmt.Errorf("store: write %s: %w", tmpname, err)
	}
	if err := os.Rename(tmpname, filename); err != nil {
		os.Remove(tmpname)
		return fmt.Errorf("store: rename %s to %s: %w", tmpname, filename, err)
	}
	return nil
}
