package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/viper"

	"go.klb.dev/clipsync/internal/control"
	"go.klb.dev/clipsync/internal/ipc"
)

// rpcTimeout bounds control calls that do not touch the radio.
const rpcTimeout = 5 * time.Second

var errNoDaemon = errors.New("clipsync daemon is not running (start it with \"clipsync run\")")

// dialDaemon connects to the daemon's control socket. The returned close
// function must be called when done.
func dialDaemon(v *viper.Viper) (*control.Client, func(), error) {
	socket := v.GetString("socket")
	if !ipc.IsRunning(socket) {
		return nil, nil, errNoDaemon
	}
	conn, err := control.Dial(socket)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", socket, err)
	}
	return control.NewClient(conn), func() { _ = conn.Close() }, nil
}

func rpcContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, rpcTimeout)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	return t.Format("15:04:05")
}
