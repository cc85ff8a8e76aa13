// Package transport owns the clipsync lifecycle: it binds the inbound
// listener, holds the peer registry the sender fans out to, and routes
// received text to the local clipboard, the notifier and any subscribers.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.klb.dev/clipsync/internal/clip"
	"go.klb.dev/clipsync/internal/listener"
	"go.klb.dev/clipsync/internal/message"
	"go.klb.dev/clipsync/internal/notify"
	"go.klb.dev/clipsync/internal/peers"
	"go.klb.dev/clipsync/internal/sender"
)

// ErrPermissionDenied is returned by Start when the radio refuses
// Bluetooth connections.
var ErrPermissionDenied = errors.New("transport: bluetooth permission not granted")

// State is the lifecycle of a Service.
type State int

const (
	Stopped State = iota
	Starting
	Running
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	default:
		return "stopped"
	}
}

// Radio is the Bluetooth side of the service.
type Radio interface {
	sender.Dialer
	sender.Gate
	// Listen registers the clipsync service and returns its acceptor.
	Listen(ctx context.Context) (listener.Acceptor, error)
}

// Config tunes a Service. Zero timeouts select the package defaults of
// sender and listener.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	SettleTimeout  time.Duration

	// AutoCopy writes received text to Clipboard.
	AutoCopy bool
	// Clipboard is the local clipboard. Nil selects an in-memory one.
	Clipboard clip.Backend
	// Notifier announces received text and failed shares. Nil disables it.
	Notifier notify.Notifier
	// Now overrides the clock.
	Now func() time.Time
}

// Received is one clip that arrived from a peer.
type Received struct {
	Text string    `json:"text"`
	From string    `json:"from,omitempty"`
	At   time.Time `json:"at"`
	// Sent is the sender's timestamp, zero when it did not send a usable one.
	Sent   time.Time `json:"sent,omitzero"`
	Copied bool      `json:"copied"`
}

// subscriberBuffer is how many received events a slow subscriber may lag
// before events are dropped for it.
const subscriberBuffer = 16

// Service is the clipboard transport.
type Service struct {
	radio  Radio
	reg    *peers.Registry
	send   *sender.Sender
	clip   clip.Backend
	notify notify.Notifier
	cfg    Config
	log    *slog.Logger

	autoCopy atomic.Bool

	mu    sync.Mutex
	state State
	lst   *listener.Listener
	done  chan struct{}

	latestMu sync.RWMutex
	latest   *Received

	subsMu sync.Mutex
	subs   map[chan Received]struct{}
}

// New returns a stopped Service sending to the peers in reg.
func New(radio Radio, reg *peers.Registry, cfg Config) *Service {
	if cfg.Clipboard == nil {
		cfg.Clipboard = clip.NewMemory()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Service{
		radio:  radio,
		reg:    reg,
		clip:   cfg.Clipboard,
		notify: cfg.Notifier,
		cfg:    cfg,
		log:    slog.With("component", "transport"),
		subs:   make(map[chan Received]struct{}),
	}
	s.send = sender.New(radio, radio, reg, sender.Options{
		ConnectTimeout: cfg.ConnectTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		SettleTimeout:  cfg.SettleTimeout,
		Now:            cfg.Now,
	})
	s.autoCopy.Store(cfg.AutoCopy)
	return s
}

// Start binds the listener and stores initialPeers. Calling Start on a
// running service only replaces the peers. If a previous listener is still
// shutting down, Start waits for it first.
func (s *Service) Start(ctx context.Context, initialPeers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runningLocked() {
		s.reg.Set(initialPeers)
		s.log.Debug("already running, peers replaced", "peers", s.reg.Len())
		return nil
	}
	if s.done != nil {
		<-s.done
	}

	if !s.radio.ConnectAllowed(ctx) {
		s.state = Stopped
		return ErrPermissionDenied
	}
	s.state = Starting
	acc, err := s.radio.Listen(ctx)
	if err != nil {
		s.state = Stopped
		return fmt.Errorf("listen: %w", err)
	}

	s.reg.Set(initialPeers)
	l := listener.New(acc, s.received, s.cfg.ReadTimeout)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := l.Run(); err != nil {
			s.log.Error("listener terminated", "err", err)
		}
	}()
	s.lst, s.done = l, done
	s.state = Running
	s.log.Info("transport started", "peers", s.reg.Len())
	return nil
}

// Stop closes the listener, waits for its accept loop to finish and clears
// the peer registry.
func (s *Service) Stop() {
	s.mu.Lock()
	l, done := s.lst, s.done
	s.lst = nil
	s.state = Stopped
	s.mu.Unlock()

	if l != nil {
		if err := l.Close(); err != nil {
			s.log.Debug("close listener", "err", err)
		}
		<-done
		s.log.Info("transport stopped")
	}
	s.reg.Clear()
}

// runningLocked reports whether the listener is up. A listener whose accept
// loop died on its own counts as stopped.
func (s *Service) runningLocked() bool {
	if s.state != Running {
		return false
	}
	select {
	case <-s.done:
		s.state = Stopped
		s.lst = nil
		return false
	default:
		return true
	}
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running && !s.runningLocked() {
		return Stopped
	}
	return s.state
}

// Running reports whether the listener is accepting connections.
func (s *Service) Running() bool { return s.State() == Running }

// UpdatePeers replaces the fan-out targets. Shares in flight keep the
// snapshot they already took.
func (s *Service) UpdatePeers(addrs []string) {
	s.reg.Set(addrs)
	s.log.Info("peers updated", "peers", s.reg.Len())
}

// Peers returns the current fan-out targets.
func (s *Service) Peers() []string { return s.reg.Snapshot() }

// Share sends text to every selected peer. It blocks for the whole
// fan-out and must not be called from a latency-sensitive goroutine.
func (s *Service) Share(ctx context.Context, text string) sender.Report {
	rep := s.send.Broadcast(ctx, text)
	if !rep.Result.OK() {
		s.notify.ShareFailed(rep.Result)
	}
	return rep
}

// ShareClipboard shares the current local clipboard text.
func (s *Service) ShareClipboard(ctx context.Context) sender.Report {
	text, err := s.clip.Read()
	if err != nil {
		s.log.Warn("clipboard read failed", "err", err)
		text = ""
	}
	return s.Share(ctx, text)
}

// SetAutoCopy toggles writing received text to the local clipboard.
func (s *Service) SetAutoCopy(on bool) {
	s.autoCopy.Store(on)
	s.log.Info("auto-copy changed", "enabled", on)
}

// AutoCopy reports whether received text is written to the local clipboard.
func (s *Service) AutoCopy() bool { return s.autoCopy.Load() }

// Latest returns the most recently received clip.
func (s *Service) Latest() (Received, bool) {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	if s.latest == nil {
		return Received{}, false
	}
	return *s.latest, true
}

// Subscribe returns a channel of received clips and a function that
// unsubscribes and closes it. Events are dropped for a subscriber that
// falls subscriberBuffer events behind.
func (s *Service) Subscribe() (<-chan Received, func()) {
	ch := make(chan Received, subscriberBuffer)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, ch)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

// received runs on the listener goroutine for every accepted clip.
func (s *Service) received(msg *message.Clip, from string) {
	ev := Received{Text: msg.Clip, From: from, At: s.cfg.Now()}
	if t, ok := msg.Time(); ok {
		ev.Sent = t
	}
	// Blank text is still announced but never replaces the local clipboard.
	if s.autoCopy.Load() && strings.TrimSpace(msg.Clip) != "" {
		if err := s.clip.Write(msg.Clip); err != nil {
			s.log.Warn("clipboard write failed", "err", err)
		} else {
			ev.Copied = true
		}
	}

	s.latestMu.Lock()
	s.latest = &ev
	s.latestMu.Unlock()

	s.notify.ClipReceived(ev.Text, ev.Copied)

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Warn("subscriber lagging, event dropped")
		}
	}
}
