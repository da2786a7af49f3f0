// SPDX-License-Identifier: AGPL-3.0-or-later
//
package proto_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kalahd/internal/auth"
	"kalahd/internal/pool"
	"kalahd/internal/proto"
	"kalahd/internal/session"
	"kalahd/internal/store"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newDispatcher(t *testing.T) (*proto.Dispatcher, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "kalah.db"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	authMgr := auth.New(st)
	pools := map[string]*pool.Pool{
		"KLH": pool.New("KLH", pool.NewKalahConstructor("KLH", 10*time.Second), st),
	}
	return proto.New(authMgr, pools), st
}

func TestDispatchEmptyCommand(t *testing.T) {
	d, _ := newDispatcher(t)
	sess := session.New(1, "10.0.0.1", discard{})

	errText, ok := d.Dispatch(sess, "", time.Now())
	require.False(t, ok)
	require.Equal(t, proto.ErrEmptyCommand, errText)
}

func TestDispatchUnknownVerbRequiresAuth(t *testing.T) {
	d, _ := newDispatcher(t)
	sess := session.New(1, "10.0.0.1", discard{})

	errText, ok := d.Dispatch(sess, "WUT", time.Now())
	require.False(t, ok)
	require.Equal(t, proto.ErrNotAuthed, errText)
}

func TestDispatchRegisterThenAuthenticate(t *testing.T) {
	d, _ := newDispatcher(t)
	sess := session.New(1, "10.0.0.1", discard{})

	_, ok := d.Dispatch(sess, "REG alice secret", time.Now())
	require.True(t, ok)

	_, ok = d.Dispatch(sess, "ATH alice secret", time.Now())
	require.True(t, ok)
	require.True(t, sess.Authed)
	require.Equal(t, "alice", sess.Name)
}

func TestDispatchAuthenticateWrongArity(t *testing.T) {
	d, _ := newDispatcher(t)
	sess := session.New(1, "10.0.0.1", discard{})

	errText, ok := d.Dispatch(sess, "ATH alice", time.Now())
	require.False(t, ok)
	require.Equal(t, proto.ErrWrongArity, errText)
}

func TestDispatchLFGRequiresAuth(t *testing.T) {
	d, _ := newDispatcher(t)
	sess := session.New(1, "10.0.0.1", discard{})

	errText, ok := d.Dispatch(sess, "LFG KLH", time.Now())
	require.False(t, ok)
	require.Equal(t, proto.ErrNotAuthed, errText)
}

func TestDispatchLFGUnknownKind(t *testing.T) {
	d, _ := newDispatcher(t)
	sess := session.New(1, "10.0.0.1", discard{})
	sess.Authenticate("alice")

	errText, ok := d.Dispatch(sess, "LFG CHS", time.Now())
	require.False(t, ok)
	require.Equal(t, proto.ErrUnknownKind, errText)
}

func TestDispatchBRDEmptyScoreboard(t *testing.T) {
	d, _ := newDispatcher(t)
	var buf discard
	sess := session.New(1, "10.0.0.1", buf)

	_, ok := d.Dispatch(sess, "BRD KLH", time.Now())
	require.True(t, ok)
}

func TestDispatchIFORequiresAuth(t *testing.T) {
	d, _ := newDispatcher(t)
	sess := session.New(1, "10.0.0.1", discard{})

	errText, ok := d.Dispatch(sess, "IFO KLH", time.Now())
	require.False(t, ok)
	require.Equal(t, proto.ErrNotAuthed, errText)
}
