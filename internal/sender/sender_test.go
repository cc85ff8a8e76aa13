package sender

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipsync/internal/message"
	"go.klb.dev/clipsync/internal/peers"
	"go.klb.dev/clipsync/internal/sharing"
	"go.klb.dev/clipsync/internal/wire"
)

type gate bool

func (g gate) ConnectAllowed(context.Context) bool { return bool(g) }

// fakeDialer hands out one end of a net.Pipe per dial and plays a receiver
// on the other end: read one line, record it, hang up.
type fakeDialer struct {
	mu    sync.Mutex
	fail  map[string]bool
	dials []string
	got   map[string][]byte
	wg    sync.WaitGroup
}

func newFakeDialer(fail ...string) *fakeDialer {
	d := &fakeDialer{fail: map[string]bool{}, got: map[string][]byte{}}
	for _, f := range fail {
		d.fail[f] = true
	}
	return d
}

func (d *fakeDialer) Dial(_ context.Context, addr string) (wire.Stream, error) {
	d.mu.Lock()
	d.dials = append(d.dials, addr)
	d.mu.Unlock()
	if d.fail[addr] {
		return nil, errors.New("host is down")
	}
	local, remote := net.Pipe()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer remote.Close()
		line, err := bufio.NewReader(remote).ReadBytes('\n')
		if err != nil {
			return
		}
		d.mu.Lock()
		d.got[addr] = line
		d.mu.Unlock()
	}()
	return local, nil
}

func (d *fakeDialer) Dials() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dials...)
}

func fixedNow() time.Time { return time.UnixMilli(1700000000000) }

func TestBroadcastPreconditions(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		peers []string
		gate  gate
		want  sharing.Result
	}{
		{name: "empty text", text: "", peers: []string{"AA:BB:CC:DD:EE:01"}, gate: true, want: sharing.ClipboardEmpty},
		{name: "blank text", text: " \t\n", peers: []string{"AA:BB:CC:DD:EE:01"}, gate: true, want: sharing.ClipboardEmpty},
		{name: "no peers", text: "hello", gate: true, want: sharing.NoSelectedDevices},
		{name: "permission denied", text: "hello", peers: []string{"AA:BB:CC:DD:EE:01"}, gate: false, want: sharing.PermissionNotGranted},
		{name: "blank beats no peers", text: "", gate: false, want: sharing.ClipboardEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDialer()
			s := New(d, tt.gate, peers.NewRegistry(tt.peers...), Options{Now: fixedNow})

			rep := s.Broadcast(context.Background(), tt.text)
			assert.Equal(t, tt.want, rep.Result)
			assert.Empty(t, rep.Peers)
			assert.Equal(t, tt.want, rep.Worst())
			assert.Empty(t, d.Dials())
		})
	}
}

func TestBroadcastSinglePeer(t *testing.T) {
	const addr = "AA:BB:CC:DD:EE:01"
	d := newFakeDialer()
	s := New(d, gate(true), peers.NewRegistry(addr), Options{Now: fixedNow})

	res := s.BroadcastClip(context.Background(), "hello\nworld")
	d.wg.Wait()

	require.Equal(t, sharing.Success, res)
	assert.Equal(t, []string{addr}, d.Dials())

	line := d.got[addr]
	require.NotEmpty(t, line)
	assert.Equal(t, byte('\n'), line[len(line)-1])

	msg, err := message.Decode(line[:len(line)-1])
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", msg.Clip)
	assert.Equal(t, "1700000000000", msg.Timestamp)
}

func TestBroadcastLastResultWins(t *testing.T) {
	const (
		a = "AA:BB:CC:DD:EE:01"
		b = "AA:BB:CC:DD:EE:02"
	)

	t.Run("first fails, last succeeds", func(t *testing.T) {
		d := newFakeDialer(a)
		s := New(d, gate(true), peers.NewRegistry(a, b), Options{Now: fixedNow})

		rep := s.Broadcast(context.Background(), "x")
		d.wg.Wait()

		assert.Equal(t, sharing.Success, rep.Result)
		assert.Equal(t, sharing.SendingError, rep.Worst())
		assert.Equal(t, []string{a}, rep.Failed())
		assert.Equal(t, []string{a, b}, d.Dials())
		assert.Contains(t, d.got, b)
	})

	t.Run("last fails", func(t *testing.T) {
		d := newFakeDialer(b)
		s := New(d, gate(true), peers.NewRegistry(a, b), Options{Now: fixedNow})

		rep := s.Broadcast(context.Background(), "x")
		d.wg.Wait()

		assert.Equal(t, sharing.SendingError, rep.Result)
		require.Len(t, rep.Peers, 2)
		assert.Equal(t, sharing.Success, rep.Peers[0].Result)
		assert.Error(t, rep.Peers[1].Err)
	})
}

func TestBroadcastConnectFailure(t *testing.T) {
	const addr = "AA:BB:CC:DD:EE:01"
	d := newFakeDialer(addr)
	s := New(d, gate(true), peers.NewRegistry(addr), Options{Now: fixedNow})

	rep := s.Broadcast(context.Background(), "x")

	assert.Equal(t, sharing.SendingError, rep.Result)
	assert.Equal(t, []string{addr}, d.Dials())
	require.Len(t, rep.Peers, 1)
	assert.Equal(t, addr, rep.Peers[0].Peer)
	assert.ErrorContains(t, rep.Peers[0].Err, "host is down")
	assert.Empty(t, d.got)
}

// closedPipe is a stream whose peer hung up before anything was written.
type closedPipe struct {
	net.Conn
	closes atomic.Int32
}

func (c *closedPipe) Close() error {
	c.closes.Add(1)
	return c.Conn.Close()
}

func TestBroadcastWriteFailure(t *testing.T) {
	const addr = "AA:BB:CC:DD:EE:01"
	var stream *closedPipe
	d := dialFunc(func(context.Context, string) (wire.Stream, error) {
		local, remote := net.Pipe()
		remote.Close()
		stream = &closedPipe{Conn: local}
		return stream, nil
	})
	s := New(d, gate(true), peers.NewRegistry(addr), Options{Now: fixedNow})

	rep := s.Broadcast(context.Background(), "x")

	assert.Equal(t, sharing.SendingError, rep.Result)
	require.Len(t, rep.Peers, 1)
	assert.Error(t, rep.Peers[0].Err)
	require.NotNil(t, stream)
	assert.Equal(t, int32(1), stream.closes.Load())
}

func TestBroadcastSettleTimeout(t *testing.T) {
	const addr = "AA:BB:CC:DD:EE:01"
	release := make(chan struct{})
	var remoteEnd net.Conn
	d := dialFunc(func(context.Context, string) (wire.Stream, error) {
		local, remote := net.Pipe()
		remoteEnd = remote
		go func() {
			_, _ = bufio.NewReader(remote).ReadBytes('\n')
			<-release
		}()
		return local, nil
	})
	s := New(d, gate(true), peers.NewRegistry(addr), Options{SettleTimeout: 50 * time.Millisecond})

	start := time.Now()
	res := s.BroadcastClip(context.Background(), "x")
	close(release)
	remoteEnd.Close()

	assert.Equal(t, sharing.Success, res)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestBroadcastCancelledContext(t *testing.T) {
	const addr = "AA:BB:CC:DD:EE:01"
	d := newFakeDialer()
	s := New(d, gate(true), peers.NewRegistry(addr), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, sharing.SendingError, s.BroadcastClip(ctx, "x"))
	assert.Empty(t, d.Dials())
}

type dialFunc func(context.Context, string) (wire.Stream, error)

func (f dialFunc) Dial(ctx context.Context, addr string) (wire.Stream, error) { return f(ctx, addr) }
