// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package auth implements registration and login (spec.md 4.3).
//
// Grounded on original_source/server.py's AuthManager.register/auth —
// same three error strings and the same loopback carve-out for
// repeated registrations from one IP — reimplemented against
// internal/store instead of an in-memory dict, with the password
// compared as a SHA-512 hex digest per spec.md 3 rather than the
// original's plaintext comparison.
package auth

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"

	"kalahd/internal/store"
)

const (
	maxNameLen = 20
	loopback   = "127.0.0.1"
)

var (
	// ErrOneRegistrationPerIP mirrors spec.md 4.3's exact wording.
	ErrOneRegistrationPerIP = errors.New("Only one registration per ip")
	// ErrNameTooLong mirrors spec.md 4.3's exact wording.
	ErrNameTooLong = errors.New("Names must be no more than 20 characters")
	// ErrAlreadyRegistered mirrors spec.md 4.3's exact wording.
	ErrAlreadyRegistered = errors.New("Already registered")
	// ErrInvalidCredentials mirrors spec.md 4.3's exact wording.
	ErrInvalidCredentials = errors.New("Invalid credentials")
)

// Digest computes the hex-encoded SHA-512 digest of an ASCII password,
// per spec.md 3's User.password_digest field.
func Digest(password string) string {
	sum := sha512.Sum512([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Manager authenticates and registers players against a backing
// store.
type Manager struct {
	store *store.Store
}

// New returns a Manager backed by s.
func New(s *store.Store) *Manager {
	return &Manager{store: s}
}

// Register enforces IP uniqueness and name length, then inserts a new
// user with a SHA-512 digest of password.
func (m *Manager) Register(ip, name, password string) error {
	if ip != loopback {
		seen, err := m.store.IPRegistered(ip)
		if err != nil {
			return err
		}
		if seen {
			return ErrOneRegistrationPerIP
		}
	}

	if len(name) > maxNameLen {
		return ErrNameTooLong
	}

	err := m.store.Register(store.User{
		Username: name,
		Digest:   Digest(password),
		IP:       ip,
	})
	if errors.Is(err, store.ErrDuplicateUsername) {
		return ErrAlreadyRegistered
	}
	return err
}

// Authenticate looks up name and compares password's digest against
// the stored one.
func (m *Manager) Authenticate(name, password string) error {
	u, ok, err := m.store.Lookup(name)
	if err != nil {
		return err
	}
	if !ok || u.Digest != Digest(password) {
		return ErrInvalidCredentials
	}
	return nil
}
