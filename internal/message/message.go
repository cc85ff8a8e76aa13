// Package message defines the clipsync wire payload.
//
// Every connection carries exactly one message: a single line of JSON
// terminated by a newline.
//
//	{"clip":"<text>","timestamp":"<epoch millis>"}\n
//
// The timestamp is informational; receivers never order or deduplicate on it.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNoClip is returned by Decode when the payload parses but has no clip field.
var ErrNoClip = errors.New("message: missing clip field")

// Clip is the payload exchanged between devices.
type Clip struct {
	Clip      string `json:"clip"`
	Timestamp string `json:"timestamp"`
}

// New builds a Clip for text stamped with now.
func New(text string, now time.Time) *Clip {
	return &Clip{
		Clip:      text,
		Timestamp: strconv.FormatInt(now.UnixMilli(), 10),
	}
}

// Time parses the timestamp. ok is false when it is absent or not a number.
func (c *Clip) Time() (t time.Time, ok bool) {
	ms, err := strconv.ParseInt(c.Timestamp, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Encode serialises the message to JSON without a trailing newline.
// encoding/json escapes embedded newlines, so the result is always one line.
func (c *Clip) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// Decode deserialises a message from raw JSON bytes. A payload without a
// clip field is rejected with ErrNoClip.
func Decode(b []byte) (*Clip, error) {
	var raw struct {
		Clip      *string `json:"clip"`
		Timestamp any     `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	if raw.Clip == nil {
		return nil, ErrNoClip
	}
	c := &Clip{Clip: *raw.Clip}
	switch ts := raw.Timestamp.(type) {
	case string:
		c.Timestamp = ts
	case float64:
		c.Timestamp = strconv.FormatFloat(ts, 'f', -1, 64)
	}
	return c, nil
}

// Preview returns at most n runes of text, with "..." appended when cut.
func Preview(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
