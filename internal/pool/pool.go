// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package pool implements per-game-kind matchmaking, the active-game
// registry, and the completion reaper (spec.md 4.5, C6).
//
// Grounded on original_source/server.py's GamePoolManager
// (add_client/handle_data/remove_client/update/reap_games, renamed
// here to Enqueue/Deliver/Remove/Tick/Reap) and on the teacher's
// queue.go for the random-pairing mechanics.
package pool

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"kalahd/internal/session"
	"kalahd/internal/store"
)

// ErrAlreadyQueued mirrors spec.md 4.5's "Already lfg" error.
var ErrAlreadyQueued = errors.New("Already lfg")

// ErrNotInGame mirrors spec.md 4.5's "Client not in game" error.
var ErrNotInGame = errors.New("Client not in game")

// GameKind is the capability every game implementation must provide,
// per spec.md 9's design note on extensibility beyond Kalah: a game
// only needs to know how to apply an in-game payload, advance its own
// clock, react to a disconnecting participant, and report whether (and
// how) it has ended.
type GameKind interface {
	// Handle applies an in-game DAT payload sent by mover. It may send
	// messages to either participant directly (board updates, turn
	// prompts) but must never send the finish-level DAT/FIN lines —
	// those are emitted once, uniformly, by the pool's Reap.
	Handle(mover *session.Session, payload []string, now time.Time)
	// Tick advances timeouts.
	Tick(now time.Time)
	// OnDisconnect marks the game lost for the opposing side when who
	// disconnects mid-match.
	OnDisconnect(who *session.Session)
	// Finished reports whether the match has ended by any means:
	// normal completion, timeout, illegal move, or disconnect.
	Finished() bool
	// Result is only valid once Finished reports true. winner is nil
	// for a draw.
	Result() (winner *session.Session, draw bool)
	// Participants returns the two sessions playing this match.
	Participants() (a, b *session.Session)
}

// Constructor builds a new GameKind for a freshly paired match.
type Constructor func(a, b *session.Session, now time.Time) GameKind

// Pool is the matchmaking queue and active-game registry for one game
// kind.
type Pool struct {
	kind    string
	newGame Constructor
	store   *store.Store

	waiting    []*session.Session
	active     map[GameKind]struct{}
	clientGame map[*session.Session]GameKind
}

// New returns an empty pool for kind, using newGame to construct
// matches once two players are paired.
func New(kind string, newGame Constructor, st *store.Store) *Pool {
	return &Pool{
		kind:       kind,
		newGame:    newGame,
		store:      st,
		active:     make(map[GameKind]struct{}),
		clientGame: make(map[*session.Session]GameKind),
	}
}

// Kind returns the game-kind string this pool matches for.
func (p *Pool) Kind() string { return p.kind }

// Store returns the backing score/credential store, so protocol
// handlers (IFO, BRD) can query it directly without the pool exposing
// per-field wrappers for every read-only query.
func (p *Pool) Store() *store.Store { return p.store }

func (p *Pool) queued(sess *session.Session) bool {
	if _, ok := p.clientGame[sess]; ok {
		return true
	}
	for _, w := range p.waiting {
		if w == sess {
			return true
		}
	}
	return false
}

// Enqueue adds sess to the matchmaking queue. If at least two sessions
// are waiting afterward, it samples two distinct sessions uniformly at
// random and starts a match between them.
func (p *Pool) Enqueue(sess *session.Session, now time.Time) error {
	if p.queued(sess) {
		return ErrAlreadyQueued
	}

	p.waiting = append(p.waiting, sess)

	if len(p.waiting) >= 2 {
		i := rand.Intn(len(p.waiting))
		a := p.waiting[i]
		p.waiting = append(p.waiting[:i], p.waiting[i+1:]...)

		j := rand.Intn(len(p.waiting))
		b := p.waiting[j]
		p.waiting = append(p.waiting[:j], p.waiting[j+1:]...)

		// SRT must reach both sides before the constructor's board
		// render / BMP turn prompt, per spec.md 4.4/4.7's message
		// ordering (scenario 2): a client learns the match started
		// and who its opponent is before it learns whose turn it is.
		a.Send(fmt.Sprintf("SRT %s %s", p.kind, b.Name))
		b.Send(fmt.Sprintf("SRT %s %s", p.kind, a.Name))

		game := p.newGame(a, b, now)
		p.active[game] = struct{}{}
		p.clientGame[a] = game
		p.clientGame[b] = game
	}

	return nil
}

// Deliver routes an in-game DAT payload from sess to its active match.
func (p *Pool) Deliver(sess *session.Session, payload []string, now time.Time) error {
	game, ok := p.clientGame[sess]
	if !ok {
		return ErrNotInGame
	}

	game.Handle(sess, payload, now)
	p.Reap(now)
	return nil
}

// Remove drops sess from the queue, forfeiting any active match in its
// favor of the opponent.
func (p *Pool) Remove(sess *session.Session, now time.Time) {
	if game, ok := p.clientGame[sess]; ok {
		game.OnDisconnect(sess)
		delete(p.clientGame, sess)
		p.Reap(now)
	}

	for i, w := range p.waiting {
		if w == sess {
			p.waiting = append(p.waiting[:i], p.waiting[i+1:]...)
			break
		}
	}
}

// Tick advances every active match's clock, then reaps any that
// finished as a result.
func (p *Pool) Tick(now time.Time) {
	for game := range p.active {
		game.Tick(now)
	}
	p.Reap(now)
}

// Reap updates the user store and emits the finish-level DAT/FIN lines
// for every finished match, then drops it from the active set
// (spec.md 4.5's score-update contract).
func (p *Pool) Reap(now time.Time) {
	for game := range p.active {
		if !game.Finished() {
			continue
		}

		a, b := game.Participants()
		winner, draw := game.Result()

		if p.store != nil {
			names := []string{a.Name, b.Name}
			if err := p.store.EnsureScore(names, p.kind); err != nil {
				logStoreErr(err)
			} else if draw {
				p.incr(a.Name, store.Draws)
				p.incr(b.Name, store.Draws)
			} else {
				loser := b
				if winner == b {
					loser = a
				}
				p.incr(winner.Name, store.Wins)
				p.incr(loser.Name, store.Losses)
			}
		}

		if draw {
			a.Send(fmt.Sprintf("DAT %s DRW", p.kind))
			a.Send(fmt.Sprintf("FIN %s DRW", p.kind))
			b.Send(fmt.Sprintf("DAT %s DRW", p.kind))
			b.Send(fmt.Sprintf("FIN %s DRW", p.kind))
		} else {
			loser := b
			if winner == b {
				loser = a
			}
			winner.Send(fmt.Sprintf("DAT %s WIN", p.kind))
			winner.Send(fmt.Sprintf("FIN %s WIN", p.kind))
			loser.Send(fmt.Sprintf("DAT %s LSE", p.kind))
			loser.Send(fmt.Sprintf("FIN %s LSE", p.kind))
		}

		delete(p.clientGame, a)
		delete(p.clientGame, b)
		delete(p.active, game)
	}
}

func (p *Pool) incr(username string, field store.Field) {
	if err := p.store.Increment(username, p.kind, field); err != nil {
		logStoreErr(err)
	}
}
