// clipsync: clipboard sync with paired devices over Bluetooth RFCOMM.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clipsync",
		Short: "Clipboard sync with paired Bluetooth devices",
		Long: `clipsync shares clipboard text with paired phones and computers over
classic Bluetooth (RFCOMM), interoperating with the ClipSync Android app.

Run "clipsync run --peer AA:BB:CC:DD:EE:FF" to start the daemon. It listens
for clips from any paired device and pushes local shares to the selected peers.
The other commands talk to the daemon over its local control socket.

Config file search order (first found wins):
  /etc/clipsync/clipsync.toml
  $HOME/.config/clipsync/clipsync.toml
  path supplied via --config

All flags can be set via CLIPSYNC_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newSendCmd(),
		newPeersCmd(),
		newAutoCopyCmd(),
		newStatusCmd(),
		newPasteCmd(),
		newWatchCmd(),
		newDevicesCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clipsync %s\n", Version)
		},
	}
}
