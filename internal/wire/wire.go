// Package wire handles reading and writing newline-delimited clip messages
// over an RFCOMM stream.
//
// Wire format:
//
//	<json>\n
//
// One message per connection. The sender writes its line and waits for the
// receiver to hang up; the receiver reads one line and closes.
package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	"go.klb.dev/clipsync/internal/message"
)

// MaxMessageSize is the largest line we will read (64 KiB). Clipboard text
// is expected to be a few KB at most.
const MaxMessageSize = 64 * 1024

// ErrTooLarge is returned when a line exceeds MaxMessageSize.
var ErrTooLarge = errors.New("wire: message too large")

// Stream is a bidirectional byte stream with deadlines. *os.File wrapping a
// non-blocking socket and net.Conn both satisfy it.
type Stream interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Conn wraps a Stream with buffered line framing.
type Conn struct {
	s  Stream
	br *bufio.Reader
}

// New wraps s.
func New(s Stream) *Conn {
	return &Conn{s: s, br: bufio.NewReaderSize(s, MaxMessageSize)}
}

// SetReadDeadline sets or clears (d == 0) the read deadline.
func (c *Conn) SetReadDeadline(d time.Duration) {
	if d == 0 {
		_ = c.s.SetReadDeadline(time.Time{})
	} else {
		_ = c.s.SetReadDeadline(time.Now().Add(d))
	}
}

// SetWriteDeadline sets or clears (d == 0) the write deadline.
func (c *Conn) SetWriteDeadline(d time.Duration) {
	if d == 0 {
		_ = c.s.SetWriteDeadline(time.Time{})
	} else {
		_ = c.s.SetWriteDeadline(time.Now().Add(d))
	}
}

// Close closes the underlying stream.
func (c *Conn) Close() error { return c.s.Close() }

// WriteMsg encodes msg and writes it followed by a newline, bounded by
// timeout (0 = no deadline).
func (c *Conn) WriteMsg(msg *message.Clip, timeout time.Duration) error {
	raw, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	line := append(raw, '\n')

	c.SetWriteDeadline(timeout)
	defer c.SetWriteDeadline(0)
	if _, err := c.s.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// ReadLine reads one line without its terminator, bounded by timeout
// (0 = no deadline). A non-empty final line that ends at EOF without a
// newline is returned as a complete line.
func (c *Conn) ReadLine(timeout time.Duration) ([]byte, error) {
	c.SetReadDeadline(timeout)
	defer c.SetReadDeadline(0)

	line, err := c.br.ReadSlice('\n')
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		return nil, ErrTooLarge
	case err == nil:
		line = line[:len(line)-1]
	case errors.Is(err, io.EOF) && len(line) > 0:
	default:
		return nil, err
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	out := make([]byte, len(line))
	copy(out, line)
	return out, nil
}

// ReadMsg reads one line and decodes it into a Clip.
func (c *Conn) ReadMsg(timeout time.Duration) (*message.Clip, error) {
	line, err := c.ReadLine(timeout)
	if err != nil {
		return nil, err
	}
	return message.Decode(line)
}

// AwaitHangup discards input until the peer closes its end or timeout
// elapses. It returns true when the peer hung up.
func (c *Conn) AwaitHangup(timeout time.Duration) bool {
	c.SetReadDeadline(timeout)
	defer c.SetReadDeadline(0)
	_, err := io.Copy(io.Discard, c.br)
	return err == nil
}
