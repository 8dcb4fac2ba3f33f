package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/sttbridge/internal/bus"
	"github.com/leonardotrapani/sttbridge/internal/config"
	"github.com/leonardotrapani/sttbridge/internal/daemon"
)

var version = "dev"

var (
	configPath string
	serverURL  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "sttbridge",
	Short:        "Speech-to-text backend: queue audio chunks over HTTP, poll for text",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/sttbridge/config.toml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "base URL of a running server (default from server.address)")

	rootCmd.AddCommand(
		serveCmd(),
		modeCmd(),
		pollCmd(),
		sendCmd(),
		statusCmd(),
		versionCmd(),
		stopCmd(),
		modelCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ResolvePath(configPath)
			if err != nil {
				return err
			}
			d := daemon.New(daemon.Options{
				ConfigPath: path,
				Version:    version,
			})
			return d.Run(cmd.Context())
		},
	}
}

func controlCmd(use, short string, command byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bus.Default()
			if err != nil {
				return err
			}
			resp, err := b.SendCommand(command)
			if err != nil {
				return fmt.Errorf("failed to %s: %w", use, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return controlCmd("status", "Show mode and queue depth of the running daemon", bus.CmdStatus)
}

func versionCmd() *cobra.Command {
	return controlCmd("version", "Show protocol and daemon version", bus.CmdVersion)
}

func stopCmd() *cobra.Command {
	return controlCmd("stop", "Stop the daemon", bus.CmdQuit)
}
