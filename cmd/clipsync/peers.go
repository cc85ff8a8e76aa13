package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPeersCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "peers [address...]",
		Short: "Show or replace the daemon's peer set",
		Long: `Without arguments, prints the device addresses the daemon shares with.
With arguments, replaces the set. Use --clear to empty it.

Run "clipsync devices" to list paired devices and their addresses.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runPeers(cmd, v, args) },
	}

	cmd.Flags().Bool("clear", false, "remove all peers")
	addSocketFlag(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runPeers(cmd *cobra.Command, v *viper.Viper, args []string) error {
	clearAll := v.GetBool("clear")
	if clearAll && len(args) > 0 {
		return fmt.Errorf("--clear cannot be combined with addresses")
	}

	client, closeFn, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer closeFn()
	ctx, cancel := rpcContext(cmd.Context())
	defer cancel()

	var list []string
	if clearAll || len(args) > 0 {
		resp, err := client.SetPeers(ctx, args)
		if err != nil {
			return fmt.Errorf("set peers: %w", err)
		}
		list = resp.Peers
	} else {
		resp, err := client.Status(ctx)
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		list = resp.Peers
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No devices selected.")
		return nil
	}
	for _, p := range list {
		fmt.Fprintln(out, p)
	}
	return nil
}
