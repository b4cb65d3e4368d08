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

// Package password provides the engine's types.Password implementation:
// store credentials held in memory, zeroed on Clear, compared in constant
// time, and never logged or persisted.
package password

import (
	"crypto/subtle"
	"errors"

	"github.com/jeremyhahn/go-certwatch/pkg/types"
)

var (
	// ErrEmptyPassword is returned when an empty password is provided.
	ErrEmptyPassword = errors.New("password cannot be empty")

	// ErrPasswordZeroed is returned when the password has been zeroed.
	ErrPasswordZeroed = errors.New("password has been zeroed")
)

// ClearPassword holds a password in cleartext until Clear zeroes it.
type ClearPassword struct {
	password []byte
}

// NewClearPassword copies the byte slice into a new password. An empty
// password is rejected: store formats that accept one take a nil Password
// instead.
func NewClearPassword(password []byte) (types.Password, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	p := make([]byte, len(password))
	copy(p, password)
	return &ClearPassword{password: p}, nil
}

// NewClearPasswordFromString creates a new password from a string.
func NewClearPasswordFromString(password string) (types.Password, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	return &ClearPassword{password: []byte(password)}, nil
}

// String returns the password as a string, or ErrPasswordZeroed after Clear.
func (p *ClearPassword) String() (string, error) {
	if p.password == nil {
		return "", ErrPasswordZeroed
	}
	return string(p.password), nil
}

// Bytes returns a copy of the password, or nil after Clear.
func (p *ClearPassword) Bytes() []byte {
	if p.password == nil {
		return nil
	}
	result := make([]byte, len(p.password))
	copy(result, p.password)
	return result
}

// Clear zeroes the password in memory. Irreversible: String and Bytes
// report the zeroed state afterwards.
func (p *ClearPassword) Clear() {
	if p.password != nil {
		for i := range p.password {
			p.password[i] = 0
		}
		p.password = nil
	}
}

// Equal compares two passwords in constant time. Either side being zeroed
// is ErrPasswordZeroed, not inequality.
func Equal(a, b types.Password) (bool, error) {
	aBytes := a.Bytes()
	if aBytes == nil {
		return false, ErrPasswordZeroed
	}
	defer func() {
		for i := range aBytes {
			aBytes[i] = 0
		}
	}()

	bBytes := b.Bytes()
	if bBytes == nil {
		return false, ErrPasswordZeroed
	}
	defer func() {
		for i := range bBytes {
			bBytes[i] = 0
		}
	}()

	return subtle.ConstantTimeCompare(aBytes, bBytes) == 1, nil
}

// Verify interface compliance at compile time
var _ types.Password = (*ClearPassword)(nil)
