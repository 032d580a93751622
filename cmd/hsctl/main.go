package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hsctl",
	Short: "HeartSync bridge client",
	Long: `Command-line client for the HeartSync Bridge helper process.

The helper owns all Bluetooth access; hsctl talks to it over the local
bridge socket and provides:

- Scan and discover nearby heart-rate sensors
- Connect a sensor and stream processed telemetry (raw, smoothed, wet/dry)
- Inspect bridge status, permission state, and the device cache

Useful for verifying a HeartSync install, debugging sensor pairing, and
recording telemetry outside a plugin host.`,
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(statusCmd)

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("socket", "", "Bridge socket path (overrides discovery)")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: ~/.config/heartsync/config.yaml)")
}
