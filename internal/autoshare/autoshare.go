// Package autoshare shares the local clipboard with the selected peers
// whenever it changes.
package autoshare

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"go.klb.dev/clipsync/internal/clip"
	"go.klb.dev/clipsync/internal/sender"
	"go.klb.dev/clipsync/internal/transport"
)

// Sharer is the part of transport.Service the watcher needs.
type Sharer interface {
	Share(ctx context.Context, text string) sender.Report
	Latest() (transport.Received, bool)
}

// Watcher shares clipboard changes. Text that just arrived from a peer is
// not sent back out.
type Watcher struct {
	backend clip.Backend
	svc     Sharer
	log     *slog.Logger

	mu   sync.Mutex
	last string
}

// New creates a watcher but does not start it. Whatever the clipboard holds
// now is never shared.
func New(backend clip.Backend, svc Sharer) *Watcher {
	w := &Watcher{
		backend: backend,
		svc:     svc,
		log:     slog.With("component", "autoshare"),
	}
	if text, err := backend.Read(); err == nil {
		w.last = text
	}
	return w
}

// Run watches the clipboard until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	w.log.Info("auto-share started", "backend", w.backend.Name())

	changes := w.backend.Watch()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			w.changed(ctx)
		}
	}
}

func (w *Watcher) changed(ctx context.Context) {
	text, err := w.backend.Read()
	if err != nil {
		w.log.Error("clipboard read failed", "err", err)
		return
	}
	if strings.TrimSpace(text) == "" || !w.remember(text) {
		return
	}
	if rx, ok := w.svc.Latest(); ok && rx.Text == text {
		w.log.Debug("skipping echo of received clip", "peer", rx.From)
		return
	}

	rep := w.svc.Share(ctx, text)
	w.log.Debug("clipboard changed, shared", "result", rep.Result, "peers", len(rep.Peers))
}

// remember records text and reports whether it differs from the last seen.
func (w *Watcher) remember(text string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if text == w.last {
		return false
	}
	w.last = text
	return true
}
