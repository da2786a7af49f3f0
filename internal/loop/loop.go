// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package loop implements the single-threaded event dispatcher
// (spec.md 4.7, C8): one goroutine owns every ClientSession and Pool,
// fed by a funnel channel from per-connection reader goroutines and
// driven by a time.Ticker. No mutex ever guards session or pool state;
// only this goroutine ever touches it, matching spec.md 3's "no
// concurrent mutation" invariant.
//
// Grounded on original_source/server.py's Server.run select() loop
// (readable sockets -> handle_data, periodic -> update/reap) and on
// the teacher's queue.go queueManager, which funnels goroutine-local
// work into one dispatching goroutine over channels rather than
// locking shared state directly.
package loop

import (
	"bufio"
	"log"
	"net"
	"time"

	"kalahd/internal/auth"
	"kalahd/internal/klog"
	"kalahd/internal/pool"
	"kalahd/internal/proto"
	"kalahd/internal/session"
)

// event is funneled from a per-connection goroutine to the dispatcher.
type event struct {
	id    session.ID
	chunk []byte // nil signals disconnect
	err   error
}

// Loop owns all connected sessions and the pools they play against.
type Loop struct {
	tick       time.Duration
	dispatcher *proto.Dispatcher
	pools      map[string]*pool.Pool

	events  chan event
	connect chan *connection
	nextID  session.ID
}

// connection pairs a freshly accepted net.Conn with the ID the loop
// assigns it, so the accept goroutine need not touch shared state.
type connection struct {
	conn net.Conn
	id   session.ID
}

// New returns a Loop that dispatches through authMgr and pools, ticking
// every tick.
func New(authMgr *auth.Manager, pools map[string]*pool.Pool, tick time.Duration) *Loop {
	return &Loop{
		tick:       tick,
		dispatcher: proto.New(authMgr, pools),
		pools:      pools,
		events:     make(chan event, 64),
		connect:    make(chan *connection),
	}
}

// Serve starts the dispatch loop and accepts connections on ln until
// ln.Accept fails (for example because the caller closed ln), which is
// the only way it returns.
func (l *Loop) Serve(ln net.Listener) error {
	go l.dispatch()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		l.nextID++
		id := l.nextID
		klog.Debug.Printf("accepted connection %d from %s", id, conn.RemoteAddr())
		go l.readLoop(id, conn)
	}
}

// readLoop is the per-connection blocking reader. It never touches
// session/pool state directly; it only ever forwards bytes or a
// disconnect signal to the dispatcher over l.events.
func (l *Loop) readLoop(id session.ID, conn net.Conn) {
	defer conn.Close()

	l.events <- event{id: id, chunk: nil, err: errConnected{conn: conn}}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), 64*1024)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		line = append(line, '\n')
		l.events <- event{id: id, chunk: line}
	}
	l.events <- event{id: id, chunk: nil}
}

// errConnected is a sentinel carried in the very first event for a
// connection so the dispatcher can register the session's writer
// without a second channel.
type errConnected struct{ conn net.Conn }

func (errConnected) Error() string { return "connected" }

// dispatch is the single goroutine that owns every Session and Pool.
func (l *Loop) dispatch() {
	sessions := make(map[session.ID]*session.Session)
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	for {
		select {
		case ev := <-l.events:
			l.handleEvent(sessions, ev)
		case now := <-ticker.C:
			for _, p := range l.pools {
				p.Tick(now)
			}
		}
	}
}

func (l *Loop) handleEvent(sessions map[session.ID]*session.Session, ev event) {
	if conn, ok := ev.err.(errConnected); ok {
		sessions[ev.id] = session.New(ev.id, remoteIP(conn.conn), conn.conn)
		return
	}

	sess, ok := sessions[ev.id]
	if !ok {
		return
	}

	if ev.chunk == nil {
		l.disconnect(sessions, sess)
		return
	}

	if err := sess.Feed(ev.chunk); err != nil {
		log.Print("loop: non-ASCII from ", sess, ": ", err)
		l.disconnect(sessions, sess)
		return
	}

	now := time.Now()
	for {
		line, ok := sess.NextMessage()
		if !ok {
			break
		}
		if errText, ok := l.dispatcher.Dispatch(sess, line, now); !ok {
			sess.Send("ERR " + errText)
		}
	}
}

func (l *Loop) disconnect(sessions map[session.ID]*session.Session, sess *session.Session) {
	now := time.Now()
	for _, p := range l.pools {
		p.Remove(sess, now)
	}
	delete(sessions, sess.ID)
	klog.Debug.Printf("disconnected %s", sess)
}

func remoteIP(conn net.Conn) string {
	addr, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return conn.RemoteAddr().String()
	}
	return addr.IP.String()
}
