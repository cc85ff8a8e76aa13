package message

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeIsSingleLine(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	b, err := New("line one\nline two", now).Encode()
	require.NoError(t, err)

	assert.False(t, bytes.ContainsRune(b, '\n'))
	assert.JSONEq(t, `{"clip":"line one\nline two","timestamp":"1700000000123"}`, string(b))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    *Clip
		wantErr error
	}{
		{name: "full", in: `{"clip":"abc","timestamp":"12"}`, want: &Clip{Clip: "abc", Timestamp: "12"}},
		{name: "clip only", in: `{"clip":"abc"}`, want: &Clip{Clip: "abc"}},
		{name: "numeric timestamp", in: `{"clip":"x","timestamp":99}`, want: &Clip{Clip: "x", Timestamp: "99"}},
		{name: "missing clip", in: `{"timestamp":"12"}`, wantErr: ErrNoClip},
		{name: "unicode", in: `{"clip":"héllo ✓"}`, want: &Clip{Clip: "héllo ✓"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.in))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`["clip"]`))
	assert.Error(t, err)
}

func TestTime(t *testing.T) {
	c := New("x", time.UnixMilli(42))
	ts, ok := c.Time()
	require.True(t, ok)
	assert.Equal(t, int64(42), ts.UnixMilli())

	_, ok = (&Clip{Timestamp: "soon"}).Time()
	assert.False(t, ok)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 50))
	assert.Equal(t, "ab...", Preview("abcdef", 2))
	assert.Equal(t, "✓✓...", Preview("✓✓✓", 2))
}
