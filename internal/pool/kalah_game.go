// SPDX-License-Identifier: AGPL-3.0-or-later
//
package pool

import (
	"fmt"
	"strconv"
	"time"

	"kalahd/internal/kalah"
	"kalahd/internal/session"
)

// KalahGame wires internal/kalah's rules engine to two sessions,
// implementing GameKind. It owns the board, whose turn it is, and the
// current mover's deadline — spec.md 3 describes this as two optional
// deadline fields of which exactly one is ever set; tracking a single
// "current mover" deadline alongside toMove trivially satisfies that
// invariant instead of carrying two nil-able fields.
type KalahGame struct {
	kind    string
	a, b    *session.Session
	board   kalah.Board
	toMove  kalah.Side
	deadline time.Time
	timeout time.Duration

	finished bool
	winner   *session.Session // nil if draw
	draw     bool
}

// NewKalahConstructor returns a Constructor that builds Kalah matches
// with the given turn timeout. A moves first, per spec.md 4.4's
// "Opening turn".
func NewKalahConstructor(kind string, timeout time.Duration) Constructor {
	return func(a, b *session.Session, now time.Time) GameKind {
		g := &KalahGame{
			kind:     kind,
			a:        a,
			b:        b,
			board:    kalah.NewBoard(),
			toMove:   kalah.SideA,
			timeout:  timeout,
			deadline: now.Add(timeout),
		}
		a.Send(g.board.Render(kalah.SideA))
		b.Send(g.board.Render(kalah.SideB))
		a.Send(fmt.Sprintf("DAT %s BMP", g.kind))
		return g
	}
}

func (g *KalahGame) sideOf(sess *session.Session) kalah.Side {
	if sess == g.a {
		return kalah.SideA
	}
	return kalah.SideB
}

func (g *KalahGame) player(side kalah.Side) *session.Session {
	if side == kalah.SideA {
		return g.a
	}
	return g.b
}

func (g *KalahGame) forfeit(loser *session.Session) {
	g.finished = true
	if loser == g.a {
		g.winner = g.b
	} else {
		g.winner = g.a
	}
}

// Handle applies a "MOV <pos>" payload from mover. Any other payload,
// an out-of-turn move, an out-of-range pit, or sowing from an empty
// pit is a game-rule violation: mover forfeits (spec.md 4.4 step 1).
func (g *KalahGame) Handle(mover *session.Session, payload []string, now time.Time) {
	if g.finished {
		return
	}

	side := g.sideOf(mover)

	if len(payload) != 2 || payload[0] != "MOV" {
		g.forfeit(mover)
		return
	}
	rel, err := strconv.Atoi(payload[1])
	if err != nil {
		g.forfeit(mover)
		return
	}

	if side != g.toMove {
		g.forfeit(mover)
		return
	}

	abs := kalah.ToAbsolute(side, rel)
	if !g.board.Legal(side, abs) {
		g.forfeit(mover)
		return
	}

	res := g.board.Sow(side, abs)

	if g.board.Over() {
		g.board.Collect()
		winner, draw := g.board.Outcome()
		g.finished = true
		g.draw = draw
		if !draw {
			g.winner = g.player(winner)
		}
		// spec.md 4.4 step 5: the engine broadcasts the new board to
		// both players after any move, unconditionally — including
		// the move that ends the match, so both sides see the final
		// collected board before the DAT/FIN result lines follow.
		g.a.Send(g.board.Render(kalah.SideA))
		g.b.Send(g.board.Render(kalah.SideB))
		return
	}

	g.a.Send(g.board.Render(kalah.SideA))
	g.b.Send(g.board.Render(kalah.SideB))

	if res.Again {
		g.deadline = now.Add(g.timeout)
		mover.Send(fmt.Sprintf("DAT %s BMP", g.kind))
		return
	}

	opponent := g.player(side.Opponent())
	opponent.Send(fmt.Sprintf("DAT %s MOV %d", g.kind, kalah.ToRelative(abs)))
	opponent.Send(fmt.Sprintf("DAT %s BMP", g.kind))
	g.toMove = side.Opponent()
	g.deadline = now.Add(g.timeout)
}

// Tick forfeits the current mover if their turn clock has expired.
func (g *KalahGame) Tick(now time.Time) {
	if g.finished {
		return
	}
	if now.After(g.deadline) {
		g.forfeit(g.player(g.toMove))
	}
}

// OnDisconnect forfeits the match in favor of who's opponent.
func (g *KalahGame) OnDisconnect(who *session.Session) {
	if g.finished {
		return
	}
	g.forfeit(who)
}

func (g *KalahGame) Finished() bool { return g.finished }

func (g *KalahGame) Result() (winner *session.Session, draw bool) {
	return g.winner, g.draw
}

func (g *KalahGame) Participants() (a, b *session.Session) {
	return g.a, g.b
}
