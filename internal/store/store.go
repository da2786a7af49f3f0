// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package store implements the persistent user store (spec.md 4.2):
// registration, credential lookup, and per-game score bookkeeping.
//
// Grounded on the teacher's db.go: mutations are expressed as DBAction
// closures submitted over a buffered channel to a small pool of worker
// goroutines, giving every caller a bounded-latency call even though
// the underlying driver (mattn/go-sqlite3) is synchronous. This keeps
// the single-threaded event loop (internal/loop) from ever blocking on
// disk longer than one store round trip, per spec.md section 5.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"kalahd/internal/klog"
)

// ErrDuplicateUsername is returned by Register when the username is
// already taken.
var ErrDuplicateUsername = errors.New("store: duplicate username")

// Field identifies one of the three counters in a GameScore.
type Field int

const (
	Wins Field = iota
	Draws
	Losses
)

// GameScore is one user's running record for a single game kind.
type GameScore struct {
	Game   string
	Wins   uint
	Draws  uint
	Losses uint
}

// User is the persistent record for one registered player.
type User struct {
	Username string
	Digest   string // hex-encoded SHA-512
	IP       string
}

// ScoreRow is one row of a rendered scoreboard.
type ScoreRow struct {
	Username string
	Wins     uint
	Draws    uint
	Losses   uint
}

//go:embed sql
var sqlDir embed.FS

// action is a unit of work submitted to the store's worker pool; it
// mirrors the teacher's DBAction type.
type action func(*sql.DB, context.Context) error

// Store owns the SQLite handle and the channel worker pool.
type Store struct {
	db      *sql.DB
	queries map[string]*sql.Stmt
	acts    chan action
	wg      sync.WaitGroup
}

// Open opens (creating if necessary) the SQLite file at path, applies
// the teacher's pragma tuning, loads the embedded schema and queries,
// and starts threads worker goroutines draining the action channel.
func Open(path string, threads uint) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	for _, pragma := range []string{
		"journal_mode = WAL",
		"synchronous = normal",
		"foreign_keys = on",
	} {
		if _, err := db.Exec("PRAGMA " + pragma + ";"); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &Store{
		db:      db,
		queries: make(map[string]*sql.Stmt),
		acts:    make(chan action, 64),
	}

	if err := s.loadSQL(); err != nil {
		db.Close()
		return nil, err
	}

	if threads == 0 {
		threads = 1
	}
	for i := uint(0); i < threads; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	return s, nil
}

// loadSQL walks the embedded sql directory in two passes: every
// create-*.sql file is executed first, regardless of its lexical
// position among the other files, so later Prepare calls always see a
// complete schema — fs.WalkDir otherwise visits entries in plain
// lexical order (e.g. "count-users-by-ip.sql" sorts before
// "create-users.sql"), which would try to prepare a query against a
// table that doesn't exist yet.
func (s *Store) loadSQL() error {
	var creates, queries []string

	err := fs.WalkDir(sqlDir, "sql", func(file string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}
		if strings.HasPrefix(path.Base(file), "create-") {
			creates = append(creates, file)
		} else {
			queries = append(queries, file)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, file := range creates {
		base := path.Base(file)
		data, err := fs.ReadFile(sqlDir, file)
		if err != nil {
			return err
		}
		klog.Debug.Printf("execute %s", base)
		if _, err := s.db.Exec(string(data)); err != nil {
			return fmt.Errorf("store: exec %s: %w", base, err)
		}
	}

	for _, file := range queries {
		base := path.Base(file)
		data, err := fs.ReadFile(sqlDir, file)
		if err != nil {
			return err
		}
		klog.Debug.Printf("prepare %s", base)
		stmt, err := s.db.Prepare(string(data))
		if err != nil {
			return fmt.Errorf("store: prepare %s: %w", base, err)
		}
		s.queries[strings.TrimSuffix(base, ".sql")] = stmt
	}

	return nil
}

func (s *Store) worker() {
	defer s.wg.Done()
	for act := range s.acts {
		if err := act(s.db, context.Background()); err != nil {
			log.Print("store: ", err)
		}
	}
}

// Close drains pending actions and releases the database handle.
func (s *Store) Close() error {
	close(s.acts)
	s.wg.Wait()
	return s.db.Close()
}

// submit runs act on a worker goroutine and blocks the caller until it
// completes, turning the async worker pool into a synchronous call for
// the event loop — exactly the wait-group dance the teacher's
// updateDatabase(wait *sync.WaitGroup) uses.
func (s *Store) submit(act action) error {
	var (
		wg  sync.WaitGroup
		err error
	)
	wg.Add(1)
	s.acts <- func(db *sql.DB, ctx context.Context) error {
		defer wg.Done()
		err = act(db, ctx)
		return err
	}
	wg.Wait()
	return err
}

// Register atomically inserts a new user. It returns
// ErrDuplicateUsername if the username is already taken.
func (s *Store) Register(u User) error {
	err := s.submit(func(db *sql.DB, ctx context.Context) error {
		_, err := s.queries["insert-user"].ExecContext(ctx, u.Username, u.Digest, u.IP)
		return err
	})
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateUsername
	}
	return err
}

// IPRegistered reports whether any user has already registered from
// ip.
func (s *Store) IPRegistered(ip string) (bool, error) {
	var n int
	err := s.submit(func(db *sql.DB, ctx context.Context) error {
		return s.queries["count-users-by-ip"].QueryRowContext(ctx, ip).Scan(&n)
	})
	return n > 0, err
}

// Lookup returns the user with the given username, or ok=false if
// none exists.
func (s *Store) Lookup(username string) (u User, ok bool, err error) {
	err = s.submit(func(db *sql.DB, ctx context.Context) error {
		row := s.queries["select-user"].QueryRowContext(ctx, username)
		scanErr := row.Scan(&u.Username, &u.Digest, &u.IP)
		if scanErr == sql.ErrNoRows {
			return nil
		}
		if scanErr != nil {
			return scanErr
		}
		ok = true
		return nil
	})
	return u, ok, err
}

// EnsureScore idempotently appends a zeroed GameScore{game} record to
// every named user that lacks one.
func (s *Store) EnsureScore(usernames []string, game string) error {
	return s.submit(func(db *sql.DB, ctx context.Context) error {
		for _, name := range usernames {
			_, err := s.queries["insert-score-if-absent"].ExecContext(ctx, name, game)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Increment atomically adds 1 to the given field of username's score
// record for game. The record must already exist (via EnsureScore).
func (s *Store) Increment(username, game string, field Field) error {
	var column string
	switch field {
	case Wins:
		column = "wins"
	case Draws:
		column = "draws"
	case Losses:
		column = "losses"
	default:
		return fmt.Errorf("store: unknown field %d", field)
	}

	return s.submit(func(db *sql.DB, ctx context.Context) error {
		_, err := db.ExecContext(ctx,
			fmt.Sprintf("UPDATE scores SET %s = %s + 1 WHERE username = ? AND game = ?", column, column),
			username, game)
		return err
	})
}

// Scoreboard returns every user with a record for game, sorted
// descending by (wins, draws, losses, username) per spec.md 4.5.
func (s *Store) Scoreboard(game string) ([]ScoreRow, error) {
	var rows []ScoreRow
	err := s.submit(func(db *sql.DB, ctx context.Context) error {
		r, err := s.queries["select-scoreboard"].QueryContext(ctx, game)
		if err != nil {
			return err
		}
		defer r.Close()

		for r.Next() {
			var row ScoreRow
			if err := r.Scan(&row.Username, &row.Wins, &row.Draws, &row.Losses); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return r.Err()
	})
	return rows, err
}

// UserScore returns username's record for game, or the zero tuple if
// absent.
func (s *Store) UserScore(username, game string) (wins, draws, losses uint, err error) {
	err = s.submit(func(db *sql.DB, ctx context.Context) error {
		row := s.queries["select-user-score"].QueryRowContext(ctx, username, game)
		scanErr := row.Scan(&wins, &draws, &losses)
		if scanErr == sql.ErrNoRows {
			return nil
		}
		return scanErr
	})
	return
}
