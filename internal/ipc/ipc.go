// Package ipc locates the Unix socket a running clipsync daemon serves its
// control API on. CLI sub-commands check it and fall back to talking to the
// radio directly when no daemon is listening.
package ipc

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"time"
)

const socketName = "clipsync.sock"

// SocketPath returns the path of the control socket:
//
//   - $CLIPSYNC_SOCKET when set
//   - $XDG_RUNTIME_DIR/clipsync.sock
//   - $TMPDIR/clipsync.sock
func SocketPath() string {
	if s := os.Getenv("CLIPSYNC_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, socketName)
	}
	return filepath.Join(os.TempDir(), socketName)
}

// IsRunning reports whether a daemon appears to be listening on path. It
// does a cheap dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	c, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// ErrInUse is returned by Listen when another daemon owns the socket.
var ErrInUse = errors.New("ipc: socket in use by a running daemon")

// Listen creates a listener on path, removing a stale socket file left by
// a crashed run. The socket is only accessible to the current user.
func Listen(path string) (net.Listener, error) {
	if IsRunning(path) {
		return nil, ErrInUse
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	_ = os.Chmod(path, 0o600)
	return l, nil
}
