// Package listener runs the inbound side of clipsync: it accepts one RFCOMM
// connection at a time, reads a single clip message and hands the text to a
// callback.
package listener

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"go.klb.dev/clipsync/internal/message"
	"go.klb.dev/clipsync/internal/wire"
)

// DefaultReadTimeout bounds how long a silent peer can hold the listener.
const DefaultReadTimeout = 10 * time.Second

// Acceptor yields inbound streams. Close must unblock a pending Accept.
type Acceptor interface {
	Accept() (wire.Stream, error)
	Close() error
}

// Remote is implemented by streams that know the peer address.
type Remote interface {
	Remote() string
}

// Handler receives a decoded clip. from is the peer address when known.
type Handler func(clip *message.Clip, from string)

// Listener serves an Acceptor.
type Listener struct {
	acc         Acceptor
	handle      Handler
	readTimeout time.Duration
	log         *slog.Logger

	mu     sync.Mutex
	closed bool
	cur    *conn
}

// New returns a Listener. readTimeout 0 selects DefaultReadTimeout.
func New(acc Acceptor, h Handler, readTimeout time.Duration) *Listener {
	if readTimeout == 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Listener{
		acc:         acc,
		handle:      h,
		readTimeout: readTimeout,
		log:         slog.With("component", "listener"),
	}
}

// Run accepts and handles connections serially until the acceptor fails.
// It returns nil when the failure was caused by Close.
func (l *Listener) Run() error {
	l.log.Info("listening for clips")
	for {
		st, err := l.acc.Accept()
		if err != nil {
			if l.isClosed() {
				l.log.Info("listener stopped")
				return nil
			}
			l.log.Error("accept failed", "err", err)
			return err
		}

		c := &conn{Conn: wire.New(st)}
		if r, ok := st.(Remote); ok {
			c.from = r.Remote()
		}
		if !l.track(c) {
			c.close()
			return nil
		}
		l.serve(c)
		l.untrack(c)
	}
}

// Close stops Run and closes any in-flight connection.
func (l *Listener) Close() error {
	l.mu.Lock()
	l.closed = true
	cur := l.cur
	l.mu.Unlock()

	err := l.acc.Close()
	if cur != nil {
		cur.close()
	}
	return err
}

func (l *Listener) serve(c *conn) {
	defer c.close()
	log := l.log.With("peer", c.from)

	msg, err := c.ReadMsg(l.readTimeout)
	if err != nil {
		if !l.isClosed() {
			log.Warn("dropping message", "err", err)
		}
		return
	}
	log.Info("clip received", "chars", len(msg.Clip))
	if l.handle != nil {
		l.handle(msg, c.from)
	}
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Listener) track(c *conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.cur = c
	return true
}

func (l *Listener) untrack(c *conn) {
	l.mu.Lock()
	if l.cur == c {
		l.cur = nil
	}
	l.mu.Unlock()
}

// conn closes its stream exactly once, whichever of serve or Close gets
// there first.
type conn struct {
	*wire.Conn
	from string
	once sync.Once
}

func (c *conn) close() {
	c.once.Do(func() {
		if err := c.Conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Debug("close stream", "peer", c.from, "err", err)
		}
	})
}
