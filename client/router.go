package client

import (
	"github.com/quantumbio/heartsync/internal/protocol"
	"github.com/quantumbio/heartsync/internal/state"
	"github.com/sirupsen/logrus"
)

// route decodes one inbound payload, applies its state update, and notifies
// subscribers. A malformed message is logged and dropped; the connection
// stays up. Events reach subscribers in wire order because route runs only
// on the supervisor goroutine.
func (c *Client) route(payload []byte) {
	env, err := protocol.DecodeEvent(payload)
	if err != nil {
		c.log.WithError(err).Warn("Dropping undecodable helper message")
		return
	}

	switch env.Kind() {
	case protocol.EventReady:
		c.log.WithField("version", env.Version).Info("Helper ready")

	case protocol.EventHeartbeat:
		// Liveness only; the clock was touched on frame receipt.

	case protocol.EventPermission:
		// Idempotent on purpose: the same state is re-applied and consumers
		// are re-notified so UI banners can refresh.
		perm := state.ParsePermission(env.State)
		c.store.SetPermission(perm)
		c.publish(Event{Kind: PermissionChanged, Permission: perm})

	case protocol.EventDeviceFound:
		dev := state.Device{
			ID:       env.ID,
			RSSI:     env.RSSI,
			Name:     env.Name,
			Services: env.Services,
		}
		if dev.ID == "" {
			c.log.Warn("Dropping device_found without an id")
			return
		}
		stored, isNew := c.store.UpsertDevice(dev)
		c.log.WithFields(logrus.Fields{
			"device": stored.Name,
			"id":     stored.ID,
			"rssi":   stored.RSSI,
			"new":    isNew,
		}).Debug("Device sighted")
		c.publish(Event{Kind: DeviceFound, Device: stored})

	case protocol.EventConnected:
		c.store.SetDeviceConnected(env.ID)
		c.pipeline.Reset()
		c.publish(Event{Kind: DeviceConnected, Device: state.Device{ID: env.ID}})

	case protocol.EventDisconnected:
		c.store.SetDeviceDisconnected()
		c.publish(Event{Kind: DeviceDisconnected, Reason: env.Reason})

	case protocol.EventHRData:
		metrics := c.pipeline.Process(env.BPM)
		c.publish(Event{Kind: Telemetry, Metrics: metrics, RR: env.RR})

	case protocol.EventError:
		// Helper-reported problems are warnings, never reconnect triggers;
		// reconnect is driven only by transport failure or heartbeat loss.
		c.log.WithField("message", env.Message).Warn("Helper reported an error")
		c.publish(Event{Kind: Warning, Reason: env.Message})

	default:
		// Forward compatibility: an unknown discriminator is never fatal.
		c.log.WithField("kind", env.Kind()).Debug("Ignoring unrecognized helper event")
	}
}
