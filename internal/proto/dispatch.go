// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package proto implements the per-message command dispatcher
// (spec.md 4.6, C7): a static dispatch table mapping verbs to handlers
// in internal/auth and internal/pool, enforcing arity and
// authentication preconditions.
//
// Grounded on original_source/server.py's ClientManager.handle_msg
// verb dispatch (same six verbs, same error strings) and on the
// teacher's proto.go Interpret switch-over-verb structure — simplified
// to a plain strings.Fields split since spec.md's wire format carries
// no quoting, unlike the teacher's KGP protocol.
package proto

import (
	"fmt"
	"strings"
	"time"

	"kalahd/internal/auth"
	"kalahd/internal/pool"
	"kalahd/internal/session"
)

// Errors mirror spec.md 4.6's exact wording.
var (
	ErrWrongArity   = "Wrong number of arguments for command"
	ErrUnknownKind  = "Unrecognised game type"
	ErrNotAuthed    = "Client not authed"
	ErrUnknownVerb  = "Unrecognised command"
	ErrEmptyCommand = "Empty command"
)

// Dispatcher owns the auth manager and the set of registered game
// pools, and applies spec.md 4.6's verb table to each inbound line.
type Dispatcher struct {
	auth  *auth.Manager
	pools map[string]*pool.Pool
}

// New returns a Dispatcher over auth and the given pools, keyed by
// game kind (e.g. "KLH").
func New(authMgr *auth.Manager, pools map[string]*pool.Pool) *Dispatcher {
	return &Dispatcher{auth: authMgr, pools: pools}
}

// Dispatch interprets one already-trimmed line for sess. On failure it
// returns the text of an ERR line to send; the connection is never
// closed here — only internal/loop closes connections, and only on
// transport failure or an empty recv, per spec.md 4.6 and 4.7.
func (d *Dispatcher) Dispatch(sess *session.Session, line string, now time.Time) (errText string, ok bool) {
	if line == "" {
		return ErrEmptyCommand, false
	}

	fields := strings.Fields(line)
	verb := fields[0]
	args := fields[1:]

	switch verb {
	case "REG":
		if len(args) != 2 {
			return ErrWrongArity, false
		}
		if err := d.auth.Register(sess.RemoteIP, args[0], args[1]); err != nil {
			return err.Error(), false
		}
		return "", true

	case "ATH":
		if len(args) != 2 {
			return ErrWrongArity, false
		}
		if err := d.auth.Authenticate(args[0], args[1]); err != nil {
			return err.Error(), false
		}
		sess.Authenticate(args[0])
		return "", true

	case "LFG":
		if !sess.Authed {
			return ErrNotAuthed, false
		}
		if len(args) != 1 {
			return ErrWrongArity, false
		}
		p, found := d.pools[args[0]]
		if !found {
			return ErrUnknownKind, false
		}
		if err := p.Enqueue(sess, now); err != nil {
			return err.Error(), false
		}
		return "", true

	case "DAT":
		if !sess.Authed {
			return ErrNotAuthed, false
		}
		if len(args) < 1 {
			return ErrWrongArity, false
		}
		p, found := d.pools[args[0]]
		if !found {
			return ErrUnknownKind, false
		}
		if err := p.Deliver(sess, args[1:], now); err != nil {
			return err.Error(), false
		}
		return "", true

	case "IFO":
		if !sess.Authed {
			return ErrNotAuthed, false
		}
		if len(args) != 1 {
			return ErrWrongArity, false
		}
		p, found := d.pools[args[0]]
		if !found {
			return ErrUnknownKind, false
		}
		wins, draws, losses, err := p.Store().UserScore(sess.Name, args[0])
		if err != nil {
			return err.Error(), false
		}
		sess.Send(fmt.Sprintf("%d %d %d", wins, draws, losses))
		return "", true

	case "BRD":
		if len(args) != 1 {
			return ErrWrongArity, false
		}
		p, found := d.pools[args[0]]
		if !found {
			return ErrUnknownKind, false
		}
		rows, err := p.Store().Scoreboard(args[0])
		if err != nil {
			return err.Error(), false
		}
		// Usernames run up to 20 ASCII characters (spec.md 3), so the
		// NAME column must be at least that wide to stay right-aligned.
		sess.Send(fmt.Sprintf("%20s %4s %4s %4s", "NAME", "WIN", "DRW", "LSE"))
		for _, row := range rows {
			sess.Send(fmt.Sprintf("%20s %4d %4d %4d", row.Username, row.Wins, row.Draws, row.Losses))
		}
		sess.Send("BRD FIN")
		return "", true

	default:
		if !sess.Authed {
			return ErrNotAuthed, false
		}
		return ErrUnknownVerb, false
	}
}
