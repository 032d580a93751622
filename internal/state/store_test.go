package state_test

import (
	"testing"
	"time"

	"github.com/quantumbio/heartsync/internal/state"
	"github.com/stretchr/testify/require"
)

func TestUpsertDeviceIsIdempotentByID(t *testing.T) {
	s := state.NewStore()

	_, isNew := s.UpsertDevice(state.Device{ID: "AA:BB:CC:DD:EE:FF", RSSI: -60, Name: "Polar H10"})
	require.True(t, isNew)

	_, isNew = s.UpsertDevice(state.Device{ID: "AA:BB:CC:DD:EE:FF", RSSI: -55, Name: "Polar H10", Services: []string{"180D"}})
	require.False(t, isNew)

	devs := s.Devices()
	require.Len(t, devs, 1)
	require.Equal(t, -55, devs[0].RSSI)
	require.Equal(t, []string{"180D"}, devs[0].Services)
}

func TestDevicesPreserveDiscoveryOrder(t *testing.T) {
	s := state.NewStore()
	s.UpsertDevice(state.Device{ID: "b", RSSI: -70})
	s.UpsertDevice(state.Device{ID: "a", RSSI: -50})
	s.UpsertDevice(state.Device{ID: "c", RSSI: -60})
	// Re-sighting must not move a device to the back.
	s.UpsertDevice(state.Device{ID: "b", RSSI: -40})

	devs := s.Devices()
	require.Equal(t, []string{"b", "a", "c"}, []string{devs[0].ID, devs[1].ID, devs[2].ID})
	require.Equal(t, -40, devs[0].RSSI)
}

func TestResetDevicesClearsCache(t *testing.T) {
	s := state.NewStore()
	s.UpsertDevice(state.Device{ID: "a"})
	s.ResetDevices()
	require.Empty(t, s.Devices())
}

func TestDevicesSnapshotIsACopy(t *testing.T) {
	s := state.NewStore()
	s.UpsertDevice(state.Device{ID: "a", RSSI: -50})

	snap := s.Devices()
	snap[0].RSSI = 0

	devs := s.Devices()
	require.Equal(t, -50, devs[0].RSSI)
}

func TestConnectionStateChangeDetection(t *testing.T) {
	s := state.NewStore()
	require.Equal(t, state.Disconnected, s.ConnectionState())

	require.True(t, s.SetConnectionState(state.Connecting))
	require.True(t, s.SetConnectionState(state.Connected))
	require.False(t, s.SetConnectionState(state.Connected), "same state is not a transition")
	require.Equal(t, state.Connected, s.ConnectionState())
}

func TestDeviceConnection(t *testing.T) {
	s := state.NewStore()

	connected, id := s.DeviceConnection()
	require.False(t, connected)
	require.Empty(t, id)

	s.SetDeviceConnected("dev-1")
	connected, id = s.DeviceConnection()
	require.True(t, connected)
	require.Equal(t, "dev-1", id)

	s.SetDeviceDisconnected()
	connected, id = s.DeviceConnection()
	require.False(t, connected)
	require.Empty(t, id)
}

func TestParsePermission(t *testing.T) {
	tests := []struct {
		in   string
		want state.PermissionState
	}{
		{"authorized", state.PermissionAuthorized},
		{"Authorized", state.PermissionAuthorized},
		{"granted", state.PermissionAuthorized},
		{"denied", state.PermissionDenied},
		{"requesting", state.PermissionRequesting},
		{"unknown", state.PermissionUnknown},
		{"", state.PermissionUnknown},
		{"some-future-state", state.PermissionUnknown},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, state.ParsePermission(tt.in), "input %q", tt.in)
	}
}

func TestHeartbeatClock(t *testing.T) {
	s := state.NewStore()
	now := time.Now()

	require.Zero(t, s.HeartbeatAge(now), "no heartbeat yet")

	s.TouchHeartbeat(now)
	require.Equal(t, 3*time.Second, s.HeartbeatAge(now.Add(3*time.Second)))
}
