package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/quantumbio/heartsync/client"
	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover nearby heart-rate sensors via the bridge",
	Long: `Enables scanning in the HeartSync Bridge helper and prints every sensor
it discovers. Devices are listed in discovery order; re-sightings update the
existing row rather than adding a new one.

Example:
  hsctl scan --duration 15s
  hsctl scan --json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanDuration time.Duration
	scanJSON     bool
)

func init() {
	scanCmd.Flags().DurationVar(&scanDuration, "duration", 10*time.Second, "How long to scan")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print results as JSON")
}

func runScan(cmd *cobra.Command, _ []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	src, err := newSource(cmd, logger, nil, false)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, cancel := src.Subscribe()
	defer cancel()

	src.Connect()
	if err := awaitBridge(ctx, events, src); err != nil {
		return err
	}

	src.SetScanning(true)
	defer src.SetScanning(false)

	if !scanJSON {
		fmt.Printf("Scanning for %s...\n", scanDuration)
	}

	deadline := time.After(scanDuration)
	highlight := color.New(color.FgCyan)
	seen := 0

collect:
	for {
		select {
		case <-ctx.Done():
			break collect
		case <-deadline:
			break collect
		case ev, ok := <-events:
			if !ok {
				break collect
			}
			switch ev.Kind {
			case client.DeviceFound:
				seen++
				if !scanJSON {
					name := ev.Device.Name
					if name == "" {
						name = "(unnamed)"
					}
					highlight.Printf("  %-24s", ev.Device.ID)
					fmt.Printf(" %-28s rssi=%-4d %s\n",
						name, ev.Device.RSSI, strings.Join(ev.Device.Services, ","))
				}
			case client.Terminal:
				return fmt.Errorf("bridge unavailable: %s", ev.Reason)
			}
		}
	}

	devices := src.Devices()
	if scanJSON {
		return json.NewEncoder(os.Stdout).Encode(devices)
	}
	fmt.Printf("%d sighting(s), %d unique device(s)\n", seen, len(devices))
	return ctx.Err()
}

// awaitBridge blocks until the bridge channel comes up, surfacing terminal
// failures as command errors.
func awaitBridge(ctx context.Context, events <-chan client.Event, src client.TelemetrySource) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("event stream ended before the bridge connected")
			}
			switch ev.Kind {
			case client.BridgeUp:
				return nil
			case client.Terminal:
				return fmt.Errorf("bridge unavailable: %s", ev.Reason)
			}
		}
	}
}
