package autoshare

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipsync/internal/clip"
	"go.klb.dev/clipsync/internal/sender"
	"go.klb.dev/clipsync/internal/sharing"
	"go.klb.dev/clipsync/internal/transport"
)

type fakeSharer struct {
	mu     sync.Mutex
	shared []string
	latest *transport.Received
}

func (f *fakeSharer) Share(_ context.Context, text string) sender.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shared = append(f.shared, text)
	return sender.Report{Result: sharing.Success}
}

func (f *fakeSharer) Latest() (transport.Received, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		return transport.Received{}, false
	}
	return *f.latest, true
}

func (f *fakeSharer) receive(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = &transport.Received{Text: text, From: "AA:BB:CC:DD:EE:01"}
}

func (f *fakeSharer) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.shared...)
}

func start(t *testing.T, board clip.Backend, svc Sharer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w := New(board, svc)
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestSharesLocalChanges(t *testing.T) {
	board := clip.NewMemory()
	require.NoError(t, board.Write("already there"))
	svc := &fakeSharer{}
	start(t, board, svc)

	require.NoError(t, board.Write("copied locally"))
	require.Eventually(t, func() bool {
		return len(svc.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"copied locally"}, svc.snapshot())
}

func TestSkipsEchoOfReceivedText(t *testing.T) {
	board := clip.NewMemory()
	svc := &fakeSharer{}
	start(t, board, svc)

	svc.receive("from phone")
	require.NoError(t, board.Write("from phone"))
	require.NoError(t, board.Write(" "))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, svc.snapshot())

	require.NoError(t, board.Write("typed here"))
	require.Eventually(t, func() bool {
		return len(svc.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"typed here"}, svc.snapshot())
}
