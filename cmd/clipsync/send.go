package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipsync/internal/bluez"
	"go.klb.dev/clipsync/internal/clip"
	"go.klb.dev/clipsync/internal/control"
	"go.klb.dev/clipsync/internal/logging"
	"go.klb.dev/clipsync/internal/peers"
	"go.klb.dev/clipsync/internal/sender"
	"go.klb.dev/clipsync/internal/sharing"
)

func newSendCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "send [text...]",
		Short: "Share text with the selected peers",
		Long: `Shares text with the selected peers. The text comes from the arguments,
from stdin when it is not a terminal, or from the clipboard with --clipboard.

If the daemon is running the share goes through it (and its peer set).
Otherwise, or with --direct, clipsync opens the radio itself and sends to
the --peer addresses.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runSend(cmd, v, args) },
	}

	f := cmd.Flags()
	f.Bool("clipboard", false, "share the clipboard instead of arguments or stdin")
	f.Bool("direct", false, "bypass the daemon and use the radio directly")
	f.Bool("json", false, "output raw JSON")
	addRadioFlags(cmd)
	addSocketFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runSend(cmd *cobra.Command, v *viper.Viper, args []string) error {
	setupLogging(v)
	fromClipboard := v.GetBool("clipboard")
	if fromClipboard && len(args) > 0 {
		return fmt.Errorf("--clipboard cannot be combined with text arguments")
	}

	text := strings.Join(args, " ")
	if !fromClipboard && len(args) == 0 && !logging.IsTTY(os.Stdin) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	var (
		resp *control.ShareResponse
		err  error
	)
	if !v.GetBool("direct") {
		resp, err = shareViaDaemon(cmd.Context(), v, text, fromClipboard)
	}
	if v.GetBool("direct") || errors.Is(err, errNoDaemon) {
		resp, err = shareDirect(cmd.Context(), v, text, fromClipboard)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		if err := printJSON(out, resp); err != nil {
			return err
		}
	} else {
		printShare(out, resp)
	}
	if !resp.Result.OK() {
		return fmt.Errorf("share failed: %s", resp.Result)
	}
	return nil
}

func shareViaDaemon(ctx context.Context, v *viper.Viper, text string, fromClipboard bool) (*control.ShareResponse, error) {
	client, closeFn, err := dialDaemon(v)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := client.Share(ctx, &control.ShareRequest{Text: text, FromClipboard: fromClipboard})
	if err != nil {
		return nil, fmt.Errorf("share: %w", err)
	}
	return resp, nil
}

// shareDirect opens the radio and sends to the configured peers without a
// daemon.
func shareDirect(ctx context.Context, v *viper.Viper, text string, fromClipboard bool) (*control.ShareResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fromClipboard {
		backend := clip.New()
		defer backend.Close()
		t, err := backend.Read()
		if err != nil {
			return nil, fmt.Errorf("read clipboard: %w", err)
		}
		text = t
	}

	radio, err := bluez.Open(radioOptions(v))
	if err != nil {
		return nil, err
	}
	defer radio.Close()

	s := sender.New(radio, radio, peers.NewRegistry(v.GetStringSlice("peer")...), senderOptions(v))
	return control.NewShareResponse(s.Broadcast(ctx, text)), nil
}

func printShare(w io.Writer, resp *control.ShareResponse) {
	fmt.Fprintln(w, resp.Message)
	if len(resp.Peers) < 2 && resp.Worst == resp.Result {
		if len(resp.Peers) == 1 && resp.Peers[0].Error != "" {
			fmt.Fprintf(w, "  %s: %s\n", resp.Peers[0].Peer, resp.Peers[0].Error)
		}
		return
	}
	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	for _, p := range resp.Peers {
		detail := p.Result.Message()
		if p.Error != "" {
			detail = p.Error
		}
		mark := " "
		if p.Result != sharing.Success {
			mark = "!"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", mark, p.Peer, detail)
	}
	_ = tw.Flush()
}
