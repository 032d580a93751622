package client

import (
	"github.com/quantumbio/heartsync/internal/protocol"
	"github.com/quantumbio/heartsync/internal/state"
)

// SetScanning asks the helper to start or stop device discovery. Enabling a
// scan begins a new session, so the device cache is cleared first.
func (c *Client) SetScanning(on bool) {
	if on {
		c.store.ResetDevices()
	}
	c.send(protocol.Scan(on))
}

// ConnectDevice asks the helper to pair with the given device. Reconnecting
// to the already-connected device is a no-op; switching devices releases the
// old one first.
func (c *Client) ConnectDevice(id string) {
	connected, current := c.store.DeviceConnection()
	if connected && current == id {
		return
	}
	if connected {
		c.send(protocol.Disconnect())
	}
	c.send(protocol.Connect(id))
}

// DisconnectDevice asks the helper to release the current sensor.
func (c *Client) DisconnectDevice() {
	c.send(protocol.Disconnect())
}

// RequestStatus asks the helper to replay its current state as events.
func (c *Client) RequestStatus() {
	c.send(protocol.Status())
}

// send frames one request onto the channel. Dispatch while not Connected is
// a silent drop, not a queue: callers check connection state or rely on
// idempotent retries. Writes serialize on writeMu so concurrent callers
// never interleave at the byte level; reads stay on the supervisor
// goroutine, so the stream remains one clean full-duplex pipe.
func (c *Client) send(req protocol.Request) {
	if c.store.ConnectionState() != state.Connected {
		c.log.WithField("type", req.Type).Debug("Dropping command, bridge not connected")
		return
	}
	conn := c.currentConn()
	if conn == nil {
		return
	}

	payload, err := req.Encode()
	if err != nil {
		c.log.WithError(err).WithField("type", req.Type).Warn("Encode command failed")
		return
	}

	c.writeMu.Lock()
	err = protocol.WriteFrame(conn, payload)
	c.writeMu.Unlock()
	if err != nil {
		c.log.WithError(err).WithField("type", req.Type).Warn("Write command failed")
		// A broken pipe surfaces on the next read; close now so the
		// supervisor notices immediately.
		c.closeConn()
	}
}
