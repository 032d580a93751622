package client

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quantumbio/heartsync/internal/protocol"
	"github.com/quantumbio/heartsync/internal/state"
	"github.com/quantumbio/heartsync/internal/transport"
)

const (
	// readPoll bounds each blocking read so the supervisor can check its
	// shutdown flag and heartbeat clock between frames.
	readPoll = 250 * time.Millisecond
	// frameTimeout bounds reading the remainder of a frame once its first
	// byte has arrived.
	frameTimeout = 5 * time.Second
	// helperStartGrace is how long to wait after launching the helper
	// before probing the socket again.
	helperStartGrace = 2 * time.Second
)

// Loop-internal conditions distinguishing why a read session ended.
var (
	errHeartbeatLost = errors.New("heartbeat timeout")
	errDisarmed      = errors.New("disconnect requested")
	errIdle          = errors.New("idle poll")
)

// run is the supervisor goroutine: it sleeps until armed, then drives
// sessions of connect-retry-read until shutdown.
func (c *Client) run() {
	defer close(c.done)
	for {
		if !c.armed.Load() {
			select {
			case <-c.ctx.Done():
				return
			case <-c.wake:
				continue
			}
		}
		c.session()
		if c.ctx.Err() != nil {
			return
		}
	}
}

// session runs one arm cycle: retry with backoff until connected, then read
// until the channel drops, reconnecting as long as the client stays armed.
// It returns on explicit disconnect, terminal retry exhaustion, or shutdown.
func (c *Client) session() {
	attempts := 0

	for c.armed.Load() && c.ctx.Err() == nil {
		c.transition(state.Connecting)

		ch, err := transport.DialFirst(
			transport.SocketCandidates(c.opts.SocketPath), c.opts.DialTimeout, c.log)
		if err != nil {
			attempts++
			if attempts == 1 {
				c.log.Info("Waiting for HeartSync helper socket...")
			}

			if !c.opts.NoAutoLaunch && c.opts.LaunchAfter > 0 && attempts == c.opts.LaunchAfter {
				c.log.Info("Helper not responding, attempting to launch it")
				if lerr := c.launcher.Launch(); lerr != nil {
					c.publish(Event{Kind: Warning, Reason: lerr.Error()})
				} else if !c.sleep(helperStartGrace) {
					break
				}
			}

			if attempts >= c.opts.MaxAttempts {
				c.armed.Store(false)
				c.transition(state.Disconnected)
				c.log.WithField("attempts", attempts).Error("Giving up on helper connection")
				c.publish(Event{
					Kind:   Terminal,
					Reason: fmt.Sprintf("helper unreachable after %d attempts; check that HeartSync Bridge is installed and running", attempts),
				})
				return
			}

			if !c.sleep(c.backoff.Delay(attempts - 1)) {
				break
			}
			continue
		}

		// Connected: reset retries, identify ourselves, ask for a snapshot.
		attempts = 0
		c.setConn(ch)
		c.store.TouchHeartbeat(time.Now())
		c.transition(state.Connected)
		c.log.WithField("socket", ch.Path()).Info("Helper socket connected")
		c.publish(Event{Kind: BridgeUp})

		c.send(protocol.Handshake(c.opts.ClientName))
		c.send(protocol.Status())

		reason := c.readLoop(ch)
		c.setConn(nil)
		_ = ch.Close()

		if errors.Is(reason, errHeartbeatLost) {
			// Degraded is transient: record it, then fall through to
			// Disconnected and the retry cycle.
			c.transition(state.Degraded)
		}
		c.transition(state.Disconnected)
		c.publish(Event{Kind: BridgeDown, Reason: downReason(reason)})

		if errors.Is(reason, errDisarmed) {
			return
		}
	}

	c.transition(state.Disconnected)
}

// readLoop consumes frames until the channel fails, heartbeats stop, or the
// client is disarmed. It is the only reader of the channel.
func (c *Client) readLoop(ch *transport.Channel) error {
	for {
		if c.ctx.Err() != nil || !c.armed.Load() {
			return errDisarmed
		}

		payload, err := c.nextFrame(ch)
		switch {
		case errors.Is(err, errIdle):
			// No traffic this poll; fall through to the heartbeat check.
		case err != nil:
			if errors.Is(err, protocol.ErrFrameTooLarge) {
				c.log.WithError(err).Warn("Protocol violation, forcing disconnect")
			}
			return err
		default:
			c.store.TouchHeartbeat(time.Now())
			c.route(payload)
		}

		if age := c.store.HeartbeatAge(time.Now()); age > c.opts.HeartbeatTimeout {
			c.log.WithField("age", age.String()).Warn("Helper heartbeat lost")
			return errHeartbeatLost
		}
	}
}

// nextFrame reads one frame, polling in readPoll slices while the line is
// idle. Waiting on the first byte keeps a poll timeout from ever splitting a
// frame: once that byte arrives the rest is read under one generous deadline.
func (c *Client) nextFrame(ch *transport.Channel) ([]byte, error) {
	var first [1]byte
	_ = ch.SetReadDeadline(time.Now().Add(readPoll))
	if err := ch.ReadFull(first[:]); err != nil {
		if transport.IsTimeout(err) {
			return nil, errIdle
		}
		return nil, err
	}

	_ = ch.SetReadDeadline(time.Now().Add(frameTimeout))
	return protocol.ReadFrame(io.MultiReader(bytes.NewReader(first[:]), ch))
}

// sleep waits interruptibly; false means shutdown or disarm.
func (c *Client) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.ctx.Done():
		return false
	case <-timer.C:
		return c.armed.Load()
	}
}

func downReason(err error) string {
	switch {
	case err == nil:
		return "connection closed"
	case errors.Is(err, errDisarmed):
		return "disconnect requested"
	case errors.Is(err, errHeartbeatLost):
		return "heartbeat timeout"
	default:
		return err.Error()
	}
}
