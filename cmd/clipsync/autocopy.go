package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newAutoCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:       "autocopy [on|off]",
		Short:     "Show or toggle copying received text to the clipboard",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		PreRunE:   func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:      func(cmd *cobra.Command, args []string) error { return runAutoCopy(cmd, v, args) },
	}

	addSocketFlag(cmd)
	addConfigFlag(cmd)

	return cmd
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
	return b, nil
}

func runAutoCopy(cmd *cobra.Command, v *viper.Viper, args []string) error {
	client, closeFn, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer closeFn()
	ctx, cancel := rpcContext(cmd.Context())
	defer cancel()

	var enabled bool
	if len(args) == 1 {
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		resp, err := client.SetAutoCopy(ctx, on)
		if err != nil {
			return fmt.Errorf("set auto-copy: %w", err)
		}
		enabled = resp.Enabled
	} else {
		resp, err := client.Status(ctx)
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		enabled = resp.AutoCopy
	}

	state := "off"
	if enabled {
		state = "on"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "auto-copy %s\n", state)
	return nil
}
