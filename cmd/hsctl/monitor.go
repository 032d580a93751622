package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/quantumbio/heartsync/client"
	"github.com/spf13/cobra"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <device-id>",
	Short: "Stream processed heart-rate telemetry from a sensor",
	Long: `Connects the given sensor through the HeartSync Bridge helper and streams
one line per sample: raw BPM, offset-adjusted BPM, smoothed BPM, and the
wet/dry ratio.

With --synthetic no helper or hardware is needed; a scripted sensor is used
instead (any device id is accepted).

Example:
  hsctl monitor AA:BB:CC:DD:EE:FF --alpha 0.3
  hsctl monitor demo --synthetic --duration 30s`,
	Args: cobra.ExactArgs(1),
	RunE: runMonitor,
}

var (
	monitorPipeline  pipelineFlags
	monitorSynthetic bool
	monitorDuration  time.Duration
)

func init() {
	registerPipelineFlags(monitorCmd, &monitorPipeline)
	monitorCmd.Flags().BoolVar(&monitorSynthetic, "synthetic", false, "Use the synthetic telemetry source (no helper required)")
	monitorCmd.Flags().DurationVar(&monitorDuration, "duration", 0, "Stop after this long (0 = until interrupted)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	deviceID := args[0]

	src, err := newSource(cmd, logger, &monitorPipeline, monitorSynthetic)
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

	src.ConnectDevice(deviceID)
	defer src.DisconnectDevice()

	var done <-chan time.Time
	if monitorDuration > 0 {
		done = time.After(monitorDuration)
	}

	bpmColor := color.New(color.FgRed, color.Bold)
	dim := color.New(color.Faint)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case client.DeviceConnected:
				fmt.Printf("Sensor %s connected\n", ev.Device.ID)
			case client.DeviceDisconnected:
				fmt.Printf("Sensor disconnected: %s\n", ev.Reason)
			case client.Telemetry:
				bpmColor.Printf("%6.1f bpm", ev.Metrics.Raw)
				fmt.Printf("  adjusted=%6.1f  smoothed=%6.1f  wet/dry=%5.1f",
					ev.Metrics.Adjusted, ev.Metrics.Smoothed, ev.Metrics.Ratio)
				if len(ev.RR) > 0 {
					dim.Printf("  rr=%v", ev.RR)
				}
				fmt.Println()
			case client.PermissionChanged:
				fmt.Printf("Bluetooth permission: %s\n", ev.Permission)
			case client.BridgeDown:
				fmt.Printf("Bridge connection lost (%s), reconnecting...\n", ev.Reason)
			case client.BridgeUp:
				// Reconnected mid-stream: re-request the sensor.
				src.ConnectDevice(deviceID)
			case client.Warning:
				logger.WithField("reason", ev.Reason).Warn("Helper warning")
			case client.Terminal:
				return fmt.Errorf("bridge unavailable: %s", ev.Reason)
			}
		}
	}
}
