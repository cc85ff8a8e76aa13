// Package sender pushes local clipboard text to every selected peer, one
// fresh RFCOMM connection per peer per send.
package sender

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.klb.dev/clipsync/internal/message"
	"go.klb.dev/clipsync/internal/sharing"
	"go.klb.dev/clipsync/internal/wire"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
	DefaultSettleTimeout  = 3 * time.Second
)

// Dialer opens a client connection to the clipsync service on addr.
type Dialer interface {
	Dial(ctx context.Context, addr string) (wire.Stream, error)
}

// Gate reports whether the OS currently allows outbound Bluetooth
// connections. It is consulted before any dial.
type Gate interface {
	ConnectAllowed(ctx context.Context) bool
}

// PeerSource yields the current fan-out targets. The returned slice must be
// a copy owned by the caller.
type PeerSource interface {
	Snapshot() []string
}

// Options tunes the per-peer send sequence. Zero durations select the
// defaults; a negative SettleTimeout closes right after the write.
type Options struct {
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	SettleTimeout  time.Duration
	// Now overrides the clock used for message timestamps.
	Now func() time.Time
}

func (o *Options) fill() {
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.SettleTimeout == 0 {
		o.SettleTimeout = DefaultSettleTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Outcome is the result of sending to one peer.
type Outcome struct {
	Peer   string         `json:"peer"`
	Result sharing.Result `json:"result"`
	Err    error          `json:"-"`
}

// Report describes one broadcast.
type Report struct {
	// Result is the outcome of the last peer contacted, or the precondition
	// failure when no peer was contacted.
	Result sharing.Result `json:"result"`
	Peers  []Outcome      `json:"peers,omitempty"`
}

// Worst returns the most severe outcome across all peers.
func (r Report) Worst() sharing.Result {
	if len(r.Peers) == 0 {
		return r.Result
	}
	worst := sharing.Success
	for _, o := range r.Peers {
		worst = sharing.Worse(worst, o.Result)
	}
	return worst
}

// Failed returns the peers whose send did not succeed.
func (r Report) Failed() []string {
	var out []string
	for _, o := range r.Peers {
		if !o.Result.OK() {
			out = append(out, o.Peer)
		}
	}
	return out
}

// Sender fans a clip out to the peers of a PeerSource.
type Sender struct {
	dialer Dialer
	gate   Gate
	peers  PeerSource
	opts   Options
	log    *slog.Logger
}

// New returns a Sender.
func New(d Dialer, g Gate, peers PeerSource, opts Options) *Sender {
	opts.fill()
	return &Sender{
		dialer: d,
		gate:   g,
		peers:  peers,
		opts:   opts,
		log:    slog.With("component", "sender"),
	}
}

// BroadcastClip sends text to every selected peer and returns the
// last peer's result.
func (s *Sender) BroadcastClip(ctx context.Context, text string) sharing.Result {
	return s.Broadcast(ctx, text).Result
}

// Broadcast sends text to every selected peer, sequentially, in snapshot
// order. A failing peer never aborts the remaining ones.
func (s *Sender) Broadcast(ctx context.Context, text string) Report {
	if strings.TrimSpace(text) == "" {
		return Report{Result: sharing.ClipboardEmpty}
	}
	targets := s.peers.Snapshot()
	if len(targets) == 0 {
		return Report{Result: sharing.NoSelectedDevices}
	}
	if !s.gate.ConnectAllowed(ctx) {
		s.log.Error("bluetooth connect not permitted")
		return Report{Result: sharing.PermissionNotGranted}
	}

	rep := Report{Peers: make([]Outcome, 0, len(targets))}
	for _, addr := range targets {
		o := Outcome{Peer: addr, Result: sharing.Success}
		if err := s.sendTo(ctx, addr, text); err != nil {
			s.log.Warn("send failed", "peer", addr, "err", err)
			o.Result = sharing.SendingError
			o.Err = err
		} else {
			s.log.Debug("clip sent", "peer", addr, "chars", len(text))
		}
		rep.Peers = append(rep.Peers, o)
		rep.Result = o.Result
	}
	return rep
}

func (s *Sender) sendTo(ctx context.Context, addr, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dctx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	st, err := s.dialer.Dial(dctx, addr)
	cancel()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	c := wire.New(st)
	defer c.Close()

	if err := c.WriteMsg(message.New(text, s.opts.Now()), s.opts.WriteTimeout); err != nil {
		return err
	}
	if s.opts.SettleTimeout > 0 && !c.AwaitHangup(s.opts.SettleTimeout) {
		s.log.Debug("peer did not hang up before settle timeout", "peer", addr)
	}
	return nil
}
