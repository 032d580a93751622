// Package client implements the HeartSync bridge client: a resilient
// local-socket IPC client that obtains live heart-rate telemetry from the
// privileged helper process. It owns the connection lifecycle (backoff,
// helper auto-launch, heartbeat supervision), routes helper events into the
// shared state store and the heart-rate pipeline, and publishes a single
// ordered event stream to consumers.
package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/quantumbio/heartsync/internal/groutine"
	"github.com/quantumbio/heartsync/internal/hrm"
	"github.com/quantumbio/heartsync/internal/state"
	"github.com/quantumbio/heartsync/internal/transport"
	"github.com/sirupsen/logrus"
)

// Options configures a Client. Zero fields take the tagged defaults.
type Options struct {
	// SocketPath overrides helper socket discovery when set.
	SocketPath string
	// ClientName is the identity announced in the handshake.
	ClientName string `default:"heartsync-go"`
	// DialTimeout bounds one socket connect attempt.
	DialTimeout time.Duration `default:"2s"`
	// HeartbeatTimeout is the silence window after which the channel is
	// considered dead. The helper heartbeats roughly every 2 seconds.
	HeartbeatTimeout time.Duration `default:"5s"`
	// BackoffBase and BackoffCap shape the reconnect schedule.
	BackoffBase time.Duration `default:"100ms"`
	BackoffCap  time.Duration `default:"5s"`
	// BackoffJitter is the symmetric jitter factor on each delay.
	BackoffJitter float64 `default:"0.1"`
	// LaunchAfter is the consecutive-failure count that triggers a helper
	// launch attempt. Zero disables launching entirely.
	LaunchAfter int `default:"3"`
	// MaxAttempts bounds consecutive failures before auto-retry gives up
	// and a Terminal event is published.
	MaxAttempts int `default:"10"`
	// NoAutoLaunch disables starting the helper from well-known install
	// locations after repeated failures. Launching is on by default.
	NoAutoLaunch bool
	// EventBuffer is each subscriber's ring capacity.
	EventBuffer int `default:"64"`
	// Pipeline configures the heart-rate processing stage.
	Pipeline hrm.Config
	// HelperPaths overrides the default helper install locations (tests).
	HelperPaths []string
	// Logger receives structured diagnostics; nil means a default logger.
	Logger *logrus.Logger
}

// Client is the production TelemetrySource speaking the wire protocol over
// the helper's local socket. All blocking I/O happens on one background
// goroutine; the public API never blocks on the network.
type Client struct {
	opts     Options
	log      *logrus.Logger
	store    *state.Store
	pipeline *hrm.Pipeline
	backoff  Backoff
	launcher *transport.Launcher
	fanout   *fanout

	connMu  sync.Mutex
	conn    *transport.Channel
	writeMu sync.Mutex

	armed  atomic.Bool
	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

var _ TelemetrySource = (*Client)(nil)

// New creates a Client and starts its supervisor goroutine. The client
// stays Disconnected until Connect is called.
func New(opts Options) *Client {
	defaults.SetDefaults(&opts)

	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		opts:     opts,
		log:      log,
		store:    state.NewStore(),
		pipeline: hrm.NewPipeline(opts.Pipeline),
		backoff: Backoff{
			Base:   opts.BackoffBase,
			Cap:    opts.BackoffCap,
			Jitter: opts.BackoffJitter,
		},
		launcher: &transport.Launcher{Paths: opts.HelperPaths, Log: log},
		fanout:   newFanout(opts.EventBuffer),
		wake:     make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	groutine.Go(ctx, "bridge-supervisor", func(context.Context) { c.run() })
	return c
}

// Connect arms auto-reconnect and wakes the supervisor. Calling it again
// after a Terminal event restarts the retry cycle.
func (c *Client) Connect() {
	c.armed.Store(true)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Disconnect disarms auto-reconnect and drops the channel. Explicit
// disconnect always wins over the retry loop.
func (c *Client) Disconnect() {
	c.armed.Store(false)
	c.closeConn()
}

// Close shuts the client down and ends all subscriber channels. Join time is
// bounded: closing the socket interrupts any blocked read.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.armed.Store(false)
		c.cancel()
		c.closeConn()
		<-c.done
		c.fanout.closeAll()
	})
	return nil
}

// Subscribe registers an event channel. The channel closes when the client
// is closed; cancel detaches earlier without closing.
func (c *Client) Subscribe() (<-chan Event, func()) {
	return c.fanout.subscribe()
}

// Devices returns a discovery-ordered snapshot of the device cache.
func (c *Client) Devices() []state.Device {
	return c.store.Devices()
}

// Metrics returns the latest pipeline output.
func (c *Client) Metrics() hrm.Metrics {
	return c.pipeline.Last()
}

// Pipeline exposes the heart-rate stage for live parameter changes
// (offset, smoothing factor, ratio source).
func (c *Client) Pipeline() *hrm.Pipeline {
	return c.pipeline
}

// ConnectionState returns the current bridge channel state.
func (c *Client) ConnectionState() state.ConnectionState {
	return c.store.ConnectionState()
}

// Permission returns the last reported permission state.
func (c *Client) Permission() state.PermissionState {
	return c.store.Permission()
}

// CurrentDevice returns the sensor link flag and device ID.
func (c *Client) CurrentDevice() (bool, string) {
	return c.store.DeviceConnection()
}

func (c *Client) publish(ev Event) {
	c.fanout.publish(ev)
}

// transition records a state change and logs real transitions.
func (c *Client) transition(cs state.ConnectionState) {
	if c.store.SetConnectionState(cs) {
		c.log.WithField("state", cs.String()).Debug("Bridge connection state changed")
	}
}

func (c *Client) currentConn() *transport.Channel {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Client) setConn(ch *transport.Channel) {
	c.connMu.Lock()
	c.conn = ch
	c.connMu.Unlock()
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	ch := c.conn
	c.conn = nil
	c.connMu.Unlock()
	if ch != nil {
		_ = ch.Close()
	}
}
