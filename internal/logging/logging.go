// Package logging builds the slog logger shared by the clipsync daemon and
// its CLI commands.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

const clockFormat = "15:04:05.000"

// ParseFormat maps a flag value to a Format. Unknown values select FormatAuto.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "tint", "human":
		return FormatText
	case "json":
		return FormatJSON
	}
	return FormatAuto
}

// Options describes one process's logger.
type Options struct {
	Format Format
	// Level is a slog level name such as "warn" or "debug-2". Empty or
	// unparsable values fall back to the default for Interactive.
	Level string
	// Interactive is a foreground run: debug by default, and colour output
	// in FormatAuto even when stderr is redirected.
	Interactive bool
}

// ResolveLevel returns the effective level of o.
func (o Options) ResolveLevel() slog.Level {
	def := slog.LevelInfo
	if o.Interactive {
		def = slog.LevelDebug
	}
	var l slog.Level
	if o.Level == "" || l.UnmarshalText([]byte(o.Level)) != nil {
		return def
	}
	return l
}

func (o Options) human(w io.Writer) bool {
	switch o.Format {
	case FormatText:
		return true
	case FormatJSON:
		return false
	}
	return o.Interactive || IsTTY(w)
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// New returns a logger writing to w.
func New(w io.Writer, o Options) *slog.Logger {
	level := o.ResolveLevel()
	if o.human(w) {
		return slog.New(tinter.NewHandler(w, &tinter.Options{Level: level, TimeFormat: clockFormat}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Setup installs a stderr logger for o as the slog default.
func Setup(o Options) {
	slog.SetDefault(New(os.Stderr, o))
}
