package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipsync/internal/control"
	"go.klb.dev/clipsync/internal/message"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show the daemon's transport state and peers",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addSocketFlag(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	client, closeFn, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer closeFn()
	ctx, cancel := rpcContext(cmd.Context())
	defer cancel()

	resp, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if v.GetBool("json") {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	printStatus(cmd.OutOrStdout(), resp, v.GetString("socket"))
	return nil
}

func printStatus(w io.Writer, resp *control.StatusResponse, socket string) {
	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Daemon:\t%s (%s)\n", resp.Version, socket)
	fmt.Fprintf(tw, "Transport:\t%s\n", resp.State)
	autoCopy := "off"
	if resp.AutoCopy {
		autoCopy = "on"
	}
	fmt.Fprintf(tw, "Auto-copy:\t%s\n", autoCopy)
	peers := "none"
	if len(resp.Peers) > 0 {
		peers = strings.Join(resp.Peers, ", ")
	}
	fmt.Fprintf(tw, "Peers:\t%s\n", peers)
	if rx := resp.Latest; rx != nil {
		from := rx.From
		if from == "" {
			from = "unknown"
		}
		fmt.Fprintf(tw, "Last received:\t%q from %s, %s\n", message.Preview(rx.Text, 40), from, fmtAge(rx.At))
	}
	_ = tw.Flush()
}
