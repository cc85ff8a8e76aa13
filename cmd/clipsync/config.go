package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipsync/internal/bluez"
	"go.klb.dev/clipsync/internal/ipc"
	"go.klb.dev/clipsync/internal/listener"
	"go.klb.dev/clipsync/internal/logging"
	"go.klb.dev/clipsync/internal/sender"
	"go.klb.dev/clipsync/internal/transport"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and CLIPSYNC_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → CLIPSYNC_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("clipsync")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/clipsync/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "clipsync"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("CLIPSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addSocketFlag adds the --socket flag used to reach the daemon.
func addSocketFlag(cmd *cobra.Command) {
	cmd.Flags().String("socket", ipc.SocketPath(), "daemon control socket")
}

// addRadioFlags adds the flags that select and tune the Bluetooth transport.
func addRadioFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSlice("peer", nil, "device address to share with (repeatable)")
	f.String("adapter", bluez.DefaultAdapter, "Bluetooth adapter")
	f.Uint16("channel", 0, "RFCOMM channel to listen on (0 = assigned by BlueZ)")
	f.Duration("connect-timeout", sender.DefaultConnectTimeout, "per-peer connect timeout")
	f.Duration("read-timeout", listener.DefaultReadTimeout, "inbound read timeout")
	f.Duration("write-timeout", sender.DefaultWriteTimeout, "per-peer write timeout")
	f.Duration("settle-timeout", sender.DefaultSettleTimeout, "how long to wait for a peer to hang up after a send")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	logging.Setup(logging.Options{
		Format:      logging.ParseFormat(v.GetString("log-format")),
		Level:       v.GetString("log-level"),
		Interactive: v.GetBool("no-background") || logging.IsTTY(os.Stderr),
	})
}

func radioOptions(v *viper.Viper) bluez.Options {
	return bluez.Options{
		Adapter: v.GetString("adapter"),
		Channel: v.GetUint16("channel"),
	}
}

func transportConfig(v *viper.Viper) transport.Config {
	return transport.Config{
		ConnectTimeout: v.GetDuration("connect-timeout"),
		ReadTimeout:    v.GetDuration("read-timeout"),
		WriteTimeout:   v.GetDuration("write-timeout"),
		SettleTimeout:  v.GetDuration("settle-timeout"),
		AutoCopy:       v.GetBool("auto-copy"),
	}
}

func senderOptions(v *viper.Viper) sender.Options {
	return sender.Options{
		ConnectTimeout: v.GetDuration("connect-timeout"),
		WriteTimeout:   v.GetDuration("write-timeout"),
		SettleTimeout:  v.GetDuration("settle-timeout"),
	}
}
