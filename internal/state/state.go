// Package state holds the client's shared mutable state: the discovered
// device cache, bridge connection state, device connection state, permission
// state, and the heartbeat clock. Everything lives behind one short-held
// lock; external access is copy-out only, so the lock is never held across
// consumer code.
package state

import "strings"

// ConnectionState describes the plugin-to-helper channel status.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	// Degraded means the channel is up but heartbeats have stopped. It is
	// transient: the supervisor immediately closes the channel and moves to
	// Disconnected.
	Degraded
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// PermissionState is the OS-level hardware privacy grant, owned and reported
// exclusively by the helper.
type PermissionState int

const (
	PermissionUnknown PermissionState = iota
	PermissionRequesting
	PermissionDenied
	PermissionAuthorized
)

func (p PermissionState) String() string {
	switch p {
	case PermissionRequesting:
		return "requesting"
	case PermissionDenied:
		return "denied"
	case PermissionAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// ParsePermission maps a wire permission string to a PermissionState.
// Unrecognized values degrade to PermissionUnknown rather than erroring;
// the helper may grow new states before this client does.
func ParsePermission(s string) PermissionState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "requesting":
		return PermissionRequesting
	case "denied":
		return PermissionDenied
	case "authorized", "granted":
		return PermissionAuthorized
	default:
		return PermissionUnknown
	}
}
