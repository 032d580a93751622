package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event discriminators sent by the helper.
const (
	EventReady        = "ready"
	EventPermission   = "permission"
	EventDeviceFound  = "device_found"
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventHRData       = "hr_data"
	EventHeartbeat    = "heartbeat"
	EventError        = "error"
)

// legacyHeartbeat is the wire name emitted by older helper builds.
const legacyHeartbeat = "bridge_heartbeat"

// ErrNoDiscriminator indicates a payload carrying neither an "event" nor a
// "type" field.
var ErrNoDiscriminator = errors.New("message has no discriminator")

// Envelope is one decoded helper-to-client message. All event payloads are
// flat JSON objects, so a single envelope covers every discriminator; only
// the fields relevant to Kind() are populated.
type Envelope struct {
	Event string `json:"event"`
	Type  string `json:"type"`

	// ready
	Version int `json:"version"`

	// permission
	State string `json:"state"`

	// device_found / connected
	ID       string   `json:"id"`
	RSSI     int      `json:"rssi"`
	Name     string   `json:"name"`
	Services []string `json:"services"`

	// disconnected
	Reason string `json:"reason"`

	// hr_data
	BPM float64   `json:"bpm"`
	RR  []float64 `json:"rr"`

	// error
	Message string `json:"message"`
}

// DecodeEvent parses one inbound payload. A decode failure is a per-message
// condition, never a connection-level one: callers log and drop.
func DecodeEvent(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if env.Kind() == "" {
		return nil, ErrNoDiscriminator
	}
	return &env, nil
}

// Kind returns the normalized discriminator. Helper builds have emitted the
// discriminator under both "event" and "type" keys over time; "event" wins
// when both are present.
func (e *Envelope) Kind() string {
	kind := e.Event
	if kind == "" {
		kind = e.Type
	}
	if kind == legacyHeartbeat {
		return EventHeartbeat
	}
	return kind
}
