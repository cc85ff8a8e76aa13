// Package notify tells the local user about clipboard traffic.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"

	"go.klb.dev/clipsync/internal/message"
	"go.klb.dev/clipsync/internal/sharing"
)

// PreviewLen is how many characters of received text a notification shows.
const PreviewLen = 50

const (
	titleReceived = "Clipboard text received"
	titleFailed   = "Sharing Failed"
)

// Notifier announces received clips and failed shares.
type Notifier interface {
	// ClipReceived is called for every accepted clip. copied reports
	// whether the text was written to the local clipboard.
	ClipReceived(text string, copied bool)
	// ShareFailed is called when a share finished with a non-success result.
	ShareFailed(r sharing.Result)
}

// Desktop shows OS notifications via beeep and mirrors them to the log.
type Desktop struct {
	log *slog.Logger
}

// NewDesktop returns a Desktop notifier using app as the notification source.
func NewDesktop(app string) *Desktop {
	if app != "" {
		beeep.AppName = app
	}
	return &Desktop{log: slog.With("component", "notify")}
}

func receivedBody(text string, copied bool) string {
	body := message.Preview(text, PreviewLen)
	if !copied {
		body += " (auto-copy off)"
	}
	return body
}

func (d *Desktop) ClipReceived(text string, copied bool) {
	if err := beeep.Notify(titleReceived, receivedBody(text, copied), ""); err != nil {
		d.log.Debug("desktop notification failed", "err", err)
	}
}

func (d *Desktop) ShareFailed(r sharing.Result) {
	if err := beeep.Notify(titleFailed, r.Message(), ""); err != nil {
		d.log.Debug("desktop notification failed", "err", err)
	}
}

// Log writes notifications to the structured log only. It is used when the
// daemon runs without a desktop session.
type Log struct{}

func (Log) ClipReceived(text string, copied bool) {
	slog.Info(titleReceived, "preview", message.Preview(text, PreviewLen), "copied", copied)
}

func (Log) ShareFailed(r sharing.Result) {
	slog.Warn(titleFailed, "result", r, "message", r.Message())
}

// Nop discards every notification.
type Nop struct{}

func (Nop) ClipReceived(string, bool)  {}
func (Nop) ShareFailed(sharing.Result) {}
