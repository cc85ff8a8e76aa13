package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPasteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Print the last text received from a peer",
		Long: `Writes the most recent text received by the daemon to stdout. This works
whether or not auto-copy is on.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPaste(cmd, v) },
	}

	addSocketFlag(cmd)
	addConfigFlag(cmd)

	return cmd
}

var errNothingReceived = errors.New("nothing received yet")

func runPaste(cmd *cobra.Command, v *viper.Viper) error {
	client, closeFn, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer closeFn()
	ctx, cancel := rpcContext(cmd.Context())
	defer cancel()

	resp, err := client.Latest(ctx)
	if err != nil {
		return fmt.Errorf("latest: %w", err)
	}
	if !resp.Found || resp.Clip == nil {
		return errNothingReceived
	}
	_, err = io.WriteString(cmd.OutOrStdout(), resp.Clip.Text)
	return err
}
