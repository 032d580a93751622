package client_test

import (
	"testing"
	"time"

	"github.com/quantumbio/heartsync/client"
	"github.com/quantumbio/heartsync/internal/hrm"
	"github.com/quantumbio/heartsync/internal/state"
	"github.com/stretchr/testify/require"
)

func drainUntil(t *testing.T, events <-chan client.Event, kind client.EventKind) client.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event channel closed")
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestSyntheticSourceLifecycle(t *testing.T) {
	var src client.TelemetrySource = client.NewSynthetic(hrm.Config{Alpha: 0.15})
	defer src.Close()

	events, cancel := src.Subscribe()
	defer cancel()

	src.Connect()
	drainUntil(t, events, client.BridgeUp)

	perm := drainUntil(t, events, client.PermissionChanged)
	require.Equal(t, state.PermissionAuthorized, perm.Permission)
	require.Equal(t, state.Connected, src.ConnectionState())

	src.SetScanning(true)
	first := drainUntil(t, events, client.DeviceFound)
	require.NotEmpty(t, first.Device.ID)
	require.NotEmpty(t, src.Devices())

	src.ConnectDevice(first.Device.ID)
	drainUntil(t, events, client.DeviceConnected)
	connected, id := src.CurrentDevice()
	require.True(t, connected)
	require.Equal(t, first.Device.ID, id)

	src.DisconnectDevice()
	drainUntil(t, events, client.DeviceDisconnected)
	connected, _ = src.CurrentDevice()
	require.False(t, connected)
}

func TestSyntheticIgnoresIntentsWhileDisconnected(t *testing.T) {
	src := client.NewSynthetic(hrm.Config{Alpha: 0.15})
	defer src.Close()

	src.SetScanning(true)
	src.ConnectDevice("SYN-0001")

	require.Empty(t, src.Devices())
	connected, _ := src.CurrentDevice()
	require.False(t, connected)
}
