// SPDX-License-Identifier: AGPL-3.0-or-later
//
package auth_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"kalahd/internal/auth"
	"kalahd/internal/store"
)

func open(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "kalah.db"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterThenAuthenticate(t *testing.T) {
	m := auth.New(open(t))

	require.NoError(t, m.Register("10.0.0.1", "alice", "pw1"))
	require.NoError(t, m.Authenticate("alice", "pw1"))

	err := m.Authenticate("alice", "wrong")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	err = m.Authenticate("nobody", "pw1")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestOneRegistrationPerIP(t *testing.T) {
	m := auth.New(open(t))

	require.NoError(t, m.Register("10.0.0.1", "alice", "pw1"))
	err := m.Register("10.0.0.1", "bob", "pw2")
	require.ErrorIs(t, err, auth.ErrOneRegistrationPerIP)
}

func TestLoopbackExemptFromIPLimit(t *testing.T) {
	m := auth.New(open(t))

	require.NoError(t, m.Register("127.0.0.1", "alice", "pw1"))
	require.NoError(t, m.Register("127.0.0.1", "bob", "pw2"))
}

func TestRegisterDuplicateName(t *testing.T) {
	m := auth.New(open(t))

	require.NoError(t, m.Register("10.0.0.1", "alice", "pw1"))
	err := m.Register("127.0.0.1", "alice", "pw2")
	require.ErrorIs(t, err, auth.ErrAlreadyRegistered)
}

func TestRegisterNameTooLong(t *testing.T) {
	m := auth.New(open(t))

	err := m.Register("10.0.0.1", "this-name-is-way-too-long-for-the-limit", "pw1")
	require.ErrorIs(t, err, auth.ErrNameTooLong)
}
