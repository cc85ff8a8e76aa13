package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/soheilhy/cmux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"go.klb.dev/clipsync/internal/autoshare"
	"go.klb.dev/clipsync/internal/bluez"
	"go.klb.dev/clipsync/internal/clip"
	"go.klb.dev/clipsync/internal/control"
	"go.klb.dev/clipsync/internal/ipc"
	"go.klb.dev/clipsync/internal/notify"
	"go.klb.dev/clipsync/internal/peers"
	"go.klb.dev/clipsync/internal/transport"
)

func newRunCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the clipsync daemon",
		Long: `Registers the ClipSync RFCOMM service with BlueZ and waits for clips from
paired devices. Received text is copied to the local clipboard (unless
--auto-copy=false) and announced with a desktop notification.

The daemon serves its control API on a local Unix socket: gRPC for the
clipsync CLI and HTTP/JSON for scripts:

  curl --unix-socket $XDG_RUNTIME_DIR/clipsync.sock http://x/v1/status

Precedence (lowest → highest): defaults → config file → CLIPSYNC_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd.Context(), v) },
	}

	f := cmd.Flags()
	addRadioFlags(cmd)
	f.Bool("auto-copy", true, "write received text to the local clipboard")
	f.Bool("auto-share", false, "share the local clipboard whenever it changes")
	f.Bool("notify", true, "show desktop notifications")
	addSocketFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(ctx context.Context, v *viper.Viper) error {
	setupLogging(v)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	radio, err := bluez.Open(radioOptions(v))
	if err != nil {
		return err
	}
	defer radio.Close()

	backend := clip.New()
	defer backend.Close()

	cfg := transportConfig(v)
	cfg.Clipboard = backend
	cfg.Notifier = notify.Log{}
	if v.GetBool("notify") {
		cfg.Notifier = notify.NewDesktop("clipsync")
	}
	svc := transport.New(radio, peers.NewRegistry(), cfg)

	slog.Info("clipsync starting",
		"version", Version,
		"adapter", v.GetString("adapter"),
		"clipboard", backend.Name(),
		"auto_copy", cfg.AutoCopy,
		"auto_share", v.GetBool("auto-share"),
	)

	if err := svc.Start(ctx, v.GetStringSlice("peer")); err != nil {
		if errors.Is(err, transport.ErrPermissionDenied) {
			return fmt.Errorf("adapter %s is missing or powered off: %w", v.GetString("adapter"), err)
		}
		return err
	}
	defer svc.Stop()

	if v.GetBool("auto-share") {
		go autoshare.New(backend, svc).Run(ctx)
	}

	socket := v.GetString("socket")
	ln, err := ipc.Listen(socket)
	if err != nil {
		slog.Warn("control socket unavailable", "path", socket, "err", err)
	} else {
		slog.Info("control socket listening", "path", socket)
		stopControl := serveControl(ln, control.NewServer(svc, Version))
		defer stopControl()
	}

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

// serveControl splits ln between the gRPC server and the HTTP gateway and
// returns a function that stops both.
func serveControl(ln net.Listener, srv *control.Server) func() {
	m := cmux.New(ln)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldPrefixSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.Any())

	gs := grpc.NewServer()
	control.Register(gs, srv)
	go func() {
		if err := gs.Serve(grpcL); err != nil && !errors.Is(err, cmux.ErrListenerClosed) {
			slog.Debug("control grpc stopped", "err", err)
		}
	}()

	go func() {
		if err := serveHTTPGateway(httpL, controlHTTPHandler(srv)); err != nil {
			slog.Debug("control http stopped", "err", err)
		}
	}()

	go func() {
		if err := m.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Debug("control socket closed", "err", err)
		}
	}()

	return func() {
		gs.Stop()
		_ = ln.Close()
		_ = os.Remove(ln.Addr().String())
	}
}
