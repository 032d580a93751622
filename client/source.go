package client

import (
	"github.com/quantumbio/heartsync/internal/hrm"
	"github.com/quantumbio/heartsync/internal/state"
)

// TelemetrySource is the capability surface the embedding consumer programs
// against. There are exactly two implementations, chosen at composition
// time: the production socket client (Client) and a synthetic source that
// injects scripted events (Synthetic).
type TelemetrySource interface {
	// Connect arms the source; Disconnect disarms it and suppresses
	// auto-reconnect until Connect is called again.
	Connect()
	Disconnect()
	// Close releases every resource and ends all subscriber channels.
	Close() error

	// Subscribe registers an event channel; the returned cancel detaches
	// it. Lagging subscribers lose oldest events, never block the source.
	Subscribe() (<-chan Event, func())

	// High-level intents, silently dropped unless the bridge is connected.
	SetScanning(on bool)
	ConnectDevice(id string)
	DisconnectDevice()
	RequestStatus()

	// Snapshot accessors; all return copies.
	Devices() []state.Device
	Metrics() hrm.Metrics
	ConnectionState() state.ConnectionState
	Permission() state.PermissionState
	CurrentDevice() (connected bool, id string)
}
