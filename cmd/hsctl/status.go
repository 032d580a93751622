package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the bridge helper and sensor connection status",
	Long: `Connects to the HeartSync Bridge helper, requests a status snapshot, and
prints the bridge connection state, Bluetooth permission, and the currently
connected sensor (if any).`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

// statusSettle is how long we give the helper to answer the status
// request that is sent right after the handshake.
const statusSettle = 500 * time.Millisecond

func runStatus(cmd *cobra.Command, args []string) error {
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

	// The handshake is followed by an automatic status request; drain
	// events briefly so the snapshot reflects the helper's answer.
	settle := time.After(statusSettle)
drain:
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-settle:
			break drain
		case _, ok := <-events:
			if !ok {
				break drain
			}
		}
	}

	connState := src.ConnectionState()
	permission := src.Permission()
	connected, deviceID := src.CurrentDevice()

	var deviceName string
	if connected {
		for _, dev := range src.Devices() {
			if dev.ID == deviceID {
				deviceName = dev.Name
				break
			}
		}
	}

	if statusJSON {
		out := map[string]any{
			"bridge":     connState.String(),
			"permission": permission.String(),
		}
		if connected {
			out["device"] = map[string]string{"id": deviceID, "name": deviceName}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	label := color.New(color.Bold)
	label.Print("Bridge:      ")
	fmt.Println(connState)
	label.Print("Permission:  ")
	fmt.Println(permission)
	label.Print("Sensor:      ")
	if connected {
		if deviceName != "" {
			fmt.Printf("%s (%s)\n", deviceName, deviceID)
		} else {
			fmt.Println(deviceID)
		}
	} else {
		fmt.Println("not connected")
	}
	return nil
}
