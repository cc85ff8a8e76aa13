// Package clip provides a text-only interface to the system clipboard.
// Build constraints select the implementation:
//
//	clip_system.go: Linux, macOS and Windows via golang.design/x/clipboard
//	clip_other.go: everything else, backed by Memory
//
// When the display environment is unavailable New falls back to Memory, so
// a headless daemon still keeps received text for `clipsync paste`.
package clip

import "sync"

// Backend is the interface that all clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current clipboard text, or "" when the clipboard is
	// empty or holds no text.
	Read() (string, error)

	// Write replaces the clipboard contents with text.
	Write(text string) error

	// Watch returns a channel that receives a signal whenever the clipboard
	// text changes. The channel is never closed. Signals coalesce; the
	// caller should call Read when it receives.
	Watch() <-chan struct{}

	// Close releases any resources held by the backend.
	Close()
}

// Memory is an in-process clipboard. Writes are visible to Read and signal
// Watch, the way a real clipboard reports its own changes.
type Memory struct {
	mu      sync.Mutex
	text    string
	watchCh chan struct{}
}

// NewMemory returns an empty in-process clipboard.
func NewMemory() *Memory {
	return &Memory{watchCh: make(chan struct{}, 1)}
}

func (m *Memory) Name() string { return "in-memory" }

func (m *Memory) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

func (m *Memory) Write(text string) error {
	m.mu.Lock()
	changed := text != m.text
	m.text = text
	m.mu.Unlock()
	if changed {
		select {
		case m.watchCh <- struct{}{}:
		default:
		}
	}
	return nil
}

func (m *Memory) Watch() <-chan struct{} { return m.watchCh }
func (m *Memory) Close()                 {}
