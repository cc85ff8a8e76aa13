//go:build linux

package bluez

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	dbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const testDev = dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_01")

// socketFD returns one end of a connected socket pair as BlueZ would hand
// it over, and the other end for the test to observe.
func socketFD(t *testing.T) (dbus.UnixFD, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() { unix.Close(fds[1]) })
	return dbus.UnixFD(fds[0]), fds[1]
}

// assertHungUp checks that the other end of peer has been closed.
func assertHungUp(t *testing.T, peer int) {
	t.Helper()
	buf := make([]byte, 1)
	n, err := unix.Read(peer, buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClientProfileDelivers(t *testing.T) {
	cp := newClientProfile(slog.Default())
	ch := cp.expect(testDev)

	fd, peer := socketFD(t)
	require.Nil(t, cp.deliver(testDev, fd))

	s := <-ch
	assert.Equal(t, "AA:BB:CC:DD:EE:01", s.Remote())
	_, err := s.Write([]byte("x"))
	require.NoError(t, err)
	buf := make([]byte, 1)
	n, err := unix.Read(peer, buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	s.Close()
	cp.forget(testDev, ch)
}

func TestClientProfileRejectsUnexpected(t *testing.T) {
	cp := newClientProfile(slog.Default())
	fd, peer := socketFD(t)
	assert.Equal(t, errRejected, cp.deliver(testDev, fd))
	assertHungUp(t, peer)
}

func TestClientProfileLateSocketClosed(t *testing.T) {
	cp := newClientProfile(slog.Default())
	ch := cp.expect(testDev)
	fd, peer := socketFD(t)
	require.Nil(t, cp.deliver(testDev, fd))

	cp.forget(testDev, ch)
	assertHungUp(t, peer)
}

func TestClientProfileOneDialPerDevice(t *testing.T) {
	cp := newClientProfile(slog.Default())
	ctx := context.Background()

	release, err := cp.acquire(ctx, testDev)
	require.NoError(t, err)
	first := cp.expect(testDev)

	acquired := make(chan func(), 1)
	go func() {
		rel, err := cp.acquire(ctx, testDev)
		if err == nil {
			acquired <- rel
		}
	}()
	select {
	case <-acquired:
		t.Fatal("second dial started while the first was waiting for its socket")
	case <-time.After(50 * time.Millisecond):
	}

	// Another device is not held up.
	other, err := cp.acquire(ctx, "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_02")
	require.NoError(t, err)
	other()

	fd, _ := socketFD(t)
	require.Nil(t, cp.deliver(testDev, fd))
	s := <-first
	s.Close()
	cp.forget(testDev, first)
	release()

	var release2 func()
	select {
	case release2 = <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second dial never started")
	}
	second := cp.expect(testDev)
	fd, _ = socketFD(t)
	require.Nil(t, cp.deliver(testDev, fd))
	select {
	case s := <-second:
		s.Close()
	case <-time.After(time.Second):
		t.Fatal("second dial got no socket")
	}
	cp.forget(testDev, second)
	release2()
}

func TestClientProfileAcquireCancelled(t *testing.T) {
	cp := newClientProfile(slog.Default())
	release, err := cp.acquire(context.Background(), testDev)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = cp.acquire(ctx, testDev)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServerAcceptorBacklog(t *testing.T) {
	p := newServerAcceptor(slog.Default())
	for range pendingConns {
		fd, _ := socketFD(t)
		require.Nil(t, p.deliver(testDev, fd))
	}

	fd, peer := socketFD(t)
	assert.Equal(t, errRejected, p.deliver(testDev, fd))
	assertHungUp(t, peer)

	s, err := p.Accept()
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", s.(*rfcommStream).Remote())
	s.Close()

	fd, _ = socketFD(t)
	assert.Nil(t, p.deliver(testDev, fd))
	require.NoError(t, p.Close())
}

func TestServerAcceptorCloseDrains(t *testing.T) {
	p := newServerAcceptor(slog.Default())
	unregistered := 0
	p.unregister = func() { unregistered++ }

	var peers []int
	for range 2 {
		fd, peer := socketFD(t)
		require.Nil(t, p.deliver(testDev, fd))
		peers = append(peers, peer)
	}

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, unregistered)
	for _, peer := range peers {
		assertHungUp(t, peer)
	}

	_, err := p.Accept()
	assert.ErrorIs(t, err, net.ErrClosed)

	fd, peer := socketFD(t)
	assert.Equal(t, errRejected, p.deliver(testDev, fd))
	assertHungUp(t, peer)
}
