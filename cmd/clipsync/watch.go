package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream text received from peers",
		Long: `Prints every clip the daemon receives until interrupted. With --json each
clip is printed as one JSON object per line.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runWatch(cmd, v) },
	}

	cmd.Flags().Bool("json", false, "output JSON lines")
	addSocketFlag(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runWatch(cmd *cobra.Command, v *viper.Viper) error {
	client, closeFn, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stream, err := client.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	jsonOut := v.GetBool("json")
	for {
		ev, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
		if jsonOut {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "[%s] %s\n%s\n", ev.At.Format("15:04:05"), ev.From, ev.Text)
	}
}
