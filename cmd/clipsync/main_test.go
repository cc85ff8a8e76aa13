package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipsync/internal/control"
	"go.klb.dev/clipsync/internal/sender"
	"go.klb.dev/clipsync/internal/sharing"
)

func senderReport() sender.Report {
	return sender.Report{
		Result: sharing.Success,
		Peers: []sender.Outcome{
			{Peer: "AA:BB:CC:DD:EE:01", Result: sharing.SendingError, Err: errors.New("connect: connection refused")},
			{Peer: "AA:BB:CC:DD:EE:02", Result: sharing.Success},
		},
	}
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "clipsync dev\n", out.String())
}

func TestParseOnOff(t *testing.T) {
	for in, want := range map[string]bool{"on": true, "off": false, "true": true, "0": false} {
		got, err := parseOnOff(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseOnOff("maybe")
	assert.Error(t, err)
}

func TestPrintShare(t *testing.T) {
	var out bytes.Buffer
	printShare(&out, control.NewShareResponse(senderReport()))
	s := out.String()
	assert.Contains(t, s, "Clipboard shared!")
	assert.Contains(t, s, "AA:BB:CC:DD:EE:01")
	assert.Contains(t, s, "connection refused")
}

func TestPrintShareSingleResult(t *testing.T) {
	var out bytes.Buffer
	printShare(&out, &control.ShareResponse{
		Result:  sharing.NoSelectedDevices,
		Worst:   sharing.NoSelectedDevices,
		Message: sharing.NoSelectedDevices.Message(),
	})
	assert.Equal(t, "No devices selected\n", out.String())
}

func TestCommandsNeedDaemon(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "none.sock")
	for _, args := range [][]string{
		{"status"},
		{"peers"},
		{"autocopy"},
		{"paste"},
		{"watch"},
	} {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(append(args, "--socket", socket))
		err := root.Execute()
		assert.ErrorIs(t, err, errNoDaemon, args[0])
	}
}
