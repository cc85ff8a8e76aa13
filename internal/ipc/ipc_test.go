package ipc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketPath(t *testing.T) {
	t.Setenv("CLIPSYNC_SOCKET", "/custom/clipsync.sock")
	assert.Equal(t, "/custom/clipsync.sock", SocketPath())

	t.Setenv("CLIPSYNC_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/clipsync.sock", SocketPath())

	t.Setenv("XDG_RUNTIME_DIR", "")
	assert.Equal(t, filepath.Join(os.TempDir(), "clipsync.sock"), SocketPath())
}

func TestListen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.sock")
	assert.False(t, IsRunning(path))

	// A stale regular file is replaced.
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	l, err := Listen(path)
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	assert.True(t, IsRunning(path))
	_, err = Listen(path)
	assert.ErrorIs(t, err, ErrInUse)
}
