package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipsync/internal/bluez"
)

func newDevicesCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List paired Bluetooth devices",
		Long: `Lists the devices paired with the adapter. Devices marked with * advertise
the ClipSync service. Use their addresses with --peer or "clipsync peers".`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDevices(cmd, v) },
	}

	f := cmd.Flags()
	f.String("adapter", bluez.DefaultAdapter, "Bluetooth adapter")
	f.Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)

	return cmd
}

func runDevices(cmd *cobra.Command, v *viper.Viper) error {
	radio, err := bluez.Open(bluez.Options{Adapter: v.GetString("adapter")})
	if err != nil {
		return err
	}
	defer radio.Close()

	ctx, cancel := rpcContext(cmd.Context())
	defer cancel()
	devs, err := radio.BondedDevices(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		return printJSON(out, devs)
	}
	if len(devs) == 0 {
		fmt.Fprintln(out, "No paired devices.")
		return nil
	}
	printDevices(out, devs)
	return nil
}

func printDevices(w io.Writer, devs []bluez.Device) {
	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\tADDRESS\tNAME\tCONNECTED\n")
	fmt.Fprintf(tw, "\t-------\t----\t---------\n")
	for _, d := range devs {
		mark := ""
		if d.HasService {
			mark = "*"
		}
		connected := "no"
		if d.Connected {
			connected = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, d.Address, d.DisplayName(), connected)
	}
	_ = tw.Flush()
}
