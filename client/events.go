package client

import (
	"github.com/quantumbio/heartsync/internal/hrm"
	"github.com/quantumbio/heartsync/internal/state"
)

// EventKind tags the closed set of notifications a consumer can receive.
type EventKind int

const (
	// BridgeUp fires when the helper channel reaches Connected.
	BridgeUp EventKind = iota
	// BridgeDown fires when the helper channel drops, with the reason.
	BridgeDown
	// PermissionChanged carries every permission report, including repeats
	// of the current state; consumers rely on re-delivery for UI refresh.
	PermissionChanged
	// DeviceFound carries a new or refreshed device descriptor.
	DeviceFound
	// DeviceConnected reports the helper paired with a sensor.
	DeviceConnected
	// DeviceDisconnected reports the sensor link dropped.
	DeviceDisconnected
	// Telemetry carries one processed heart-rate sample.
	Telemetry
	// Warning is a non-fatal condition (helper error event, launch failure).
	Warning
	// Terminal means auto-reconnect gave up; an explicit Connect re-arms it.
	Terminal
)

func (k EventKind) String() string {
	switch k {
	case BridgeUp:
		return "bridge_up"
	case BridgeDown:
		return "bridge_down"
	case PermissionChanged:
		return "permission"
	case DeviceFound:
		return "device_found"
	case DeviceConnected:
		return "device_connected"
	case DeviceDisconnected:
		return "device_disconnected"
	case Telemetry:
		return "telemetry"
	case Warning:
		return "warning"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Event is the tagged union delivered on subscriber channels. Only the
// fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	// PermissionChanged
	Permission state.PermissionState

	// DeviceFound / DeviceConnected
	Device state.Device

	// BridgeDown / DeviceDisconnected / Warning / Terminal
	Reason string

	// Telemetry
	Metrics hrm.Metrics
	RR      []float64
}
