package protocol

import "encoding/json"

// Version is the protocol revision announced in the handshake.
const Version = 1

// Request discriminators sent by the client.
const (
	TypeHandshake  = "handshake"
	TypeScan       = "scan"
	TypeConnect    = "connect"
	TypeDisconnect = "disconnect"
	TypeStatus     = "status"
)

// Request is one client-to-helper protocol unit. The zero value is not
// meaningful; use the constructors below.
type Request struct {
	Type    string `json:"type"`
	Version int    `json:"version,omitempty"`
	Client  string `json:"client,omitempty"`
	On      *bool  `json:"on,omitempty"`
	ID      string `json:"id,omitempty"`
}

// Handshake announces the protocol version and client identity. It is the
// first message sent on every fresh connection.
func Handshake(clientName string) Request {
	return Request{Type: TypeHandshake, Version: Version, Client: clientName}
}

// Scan enables or disables device discovery in the helper.
func Scan(on bool) Request {
	return Request{Type: TypeScan, On: &on}
}

// Connect asks the helper to pair with the device identified by id.
func Connect(id string) Request {
	return Request{Type: TypeConnect, ID: id}
}

// Disconnect asks the helper to release the current device.
func Disconnect() Request {
	return Request{Type: TypeDisconnect}
}

// Status requests a snapshot of the helper's current state; the helper
// answers with its regular event stream (permission, connected, ...).
func Status() Request {
	return Request{Type: TypeStatus}
}

// Encode marshals the request to its JSON wire form.
func (r Request) Encode() ([]byte, error) {
	return json.Marshal(r)
}
