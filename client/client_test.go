package client_test

import (
	"encoding/json"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quantumbio/heartsync/client"
	"github.com/quantumbio/heartsync/internal/hrm"
	"github.com/quantumbio/heartsync/internal/protocol"
	"github.com/quantumbio/heartsync/internal/state"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

const testTimeout = 3 * time.Second

// fakeHelper is an in-process stand-in for the privileged helper: it listens
// on a unix socket and speaks the real wire protocol.
type fakeHelper struct {
	t    *testing.T
	path string
	ln   net.Listener

	conns    chan net.Conn
	requests chan protocol.Request

	mu      sync.Mutex
	current net.Conn
	closed  bool
}

func newFakeHelper(t *testing.T) *fakeHelper {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen %s: %v", path, err)
	}

	h := &fakeHelper{
		t:        t,
		path:     path,
		ln:       ln,
		conns:    make(chan net.Conn, 4),
		requests: make(chan protocol.Request, 32),
	}
	go h.acceptLoop()
	t.Cleanup(h.close)
	return h
}

func (h *fakeHelper) acceptLoop() {
	for {
		conn, err := h.ln.Accept()
		if err != nil {
			return
		}
		h.mu.Lock()
		h.current = conn
		h.mu.Unlock()
		h.conns <- conn
		go h.readLoop(conn)
	}
}

func (h *fakeHelper) readLoop(conn net.Conn) {
	for {
		payload, err := protocol.ReadFrame(conn)
		if err != nil {
			return
		}
		var req protocol.Request
		if err := json.Unmarshal(payload, &req); err != nil {
			continue
		}
		h.requests <- req
	}
}

// waitConn blocks until the client (re)connects.
func (h *fakeHelper) waitConn() net.Conn {
	h.t.Helper()
	select {
	case conn := <-h.conns:
		return conn
	case <-time.After(testTimeout):
		h.t.Fatal("helper never saw a connection")
		return nil
	}
}

// expectRequest waits for the next client request of the given type.
func (h *fakeHelper) expectRequest(reqType string) protocol.Request {
	h.t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case req := <-h.requests:
			if req.Type == reqType {
				return req
			}
		case <-deadline:
			h.t.Fatalf("helper never received a %q request", reqType)
		}
	}
}

// send frames one raw JSON event to the connected client.
func (h *fakeHelper) send(raw string) {
	h.t.Helper()
	h.mu.Lock()
	conn := h.current
	h.mu.Unlock()
	if conn == nil {
		h.t.Fatal("helper has no connection to send on")
	}
	if err := protocol.WriteFrame(conn, []byte(raw)); err != nil {
		h.t.Fatalf("helper send: %v", err)
	}
}

// sendRawPrefix writes arbitrary bytes, bypassing frame validation.
func (h *fakeHelper) sendRawPrefix(b []byte) {
	h.t.Helper()
	h.mu.Lock()
	conn := h.current
	h.mu.Unlock()
	if _, err := conn.Write(b); err != nil {
		h.t.Fatalf("helper raw send: %v", err)
	}
}

func (h *fakeHelper) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	_ = h.ln.Close()
	if h.current != nil {
		_ = h.current.Close()
	}
}

type ClientSuite struct {
	suite.Suite

	helper *fakeHelper
	client *client.Client
	events <-chan client.Event
	cancel func()
}

func (s *ClientSuite) SetupTest() {
	s.helper = newFakeHelper(s.T())

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	s.client = client.New(client.Options{
		SocketPath:       s.helper.path,
		ClientName:       "heartsync-test",
		DialTimeout:      200 * time.Millisecond,
		HeartbeatTimeout: 400 * time.Millisecond,
		BackoffBase:      5 * time.Millisecond,
		BackoffCap:       30 * time.Millisecond,
		NoAutoLaunch:     true,
		Pipeline:         hrm.Config{Alpha: 0.15},
		Logger:           log,
	})
	s.events, s.cancel = s.client.Subscribe()
}

func (s *ClientSuite) TearDownTest() {
	s.cancel()
	s.Require().NoError(s.client.Close())
	s.helper.close()
}

// nextEvent skips to the next event of the wanted kind.
func (s *ClientSuite) nextEvent(kind client.EventKind) client.Event {
	s.T().Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				s.FailNow("event channel closed while waiting for " + kind.String())
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			s.FailNow("timed out waiting for " + kind.String())
		}
	}
}

// connect arms the client and completes the cold-start exchange.
func (s *ClientSuite) connect() {
	s.T().Helper()
	s.client.Connect()
	s.helper.waitConn()

	hs := s.helper.expectRequest(protocol.TypeHandshake)
	s.Equal(protocol.Version, hs.Version)
	s.Equal("heartsync-test", hs.Client)
	s.helper.expectRequest(protocol.TypeStatus)

	s.nextEvent(client.BridgeUp)
	s.helper.send(`{"event":"ready","version":1}`)
}

func (s *ClientSuite) TestColdStart() {
	s.connect()
	s.Equal(state.Connected, s.client.ConnectionState())

	s.helper.send(`{"event":"permission","state":"authorized"}`)

	ev := s.nextEvent(client.PermissionChanged)
	s.Equal(state.PermissionAuthorized, ev.Permission)
	s.Equal(state.PermissionAuthorized, s.client.Permission())
}

func (s *ClientSuite) TestScanUpsertsDeviceCache() {
	s.connect()

	s.client.SetScanning(true)
	req := s.helper.expectRequest(protocol.TypeScan)
	s.Require().NotNil(req.On)
	s.True(*req.On)

	s.helper.send(`{"event":"device_found","id":"AA:BB:CC:DD:EE:FF","rssi":-60,"name":"Polar H10","services":["180D"]}`)
	first := s.nextEvent(client.DeviceFound)
	s.Equal(-60, first.Device.RSSI)

	s.helper.send(`{"event":"device_found","id":"AA:BB:CC:DD:EE:FF","rssi":-55,"name":"Polar H10","services":["180D"]}`)
	second := s.nextEvent(client.DeviceFound)
	s.Equal(-55, second.Device.RSSI)

	devs := s.client.Devices()
	s.Require().Len(devs, 1, "same id must upsert, not append")
	s.Equal(-55, devs[0].RSSI)
	s.True(devs[0].HasService("180D"))
}

func (s *ClientSuite) TestScanRestartClearsCache() {
	s.connect()

	s.client.SetScanning(true)
	s.helper.send(`{"event":"device_found","id":"dev-1","rssi":-60}`)
	s.nextEvent(client.DeviceFound)
	s.Require().Len(s.client.Devices(), 1)

	// A new scan session starts with an empty cache.
	s.client.SetScanning(true)
	s.Empty(s.client.Devices())
}

func (s *ClientSuite) TestPermissionRedeliveryStillNotifies() {
	s.connect()

	s.helper.send(`{"event":"permission","state":"denied"}`)
	s.helper.send(`{"event":"permission","state":"denied"}`)

	first := s.nextEvent(client.PermissionChanged)
	second := s.nextEvent(client.PermissionChanged)
	s.Equal(state.PermissionDenied, first.Permission)
	s.Equal(state.PermissionDenied, second.Permission, "repeats must not be de-duplicated")
}

func (s *ClientSuite) TestTelemetryPipeline() {
	s.connect()

	s.helper.send(`{"event":"hr_data","bpm":72}`)
	ev := s.nextEvent(client.Telemetry)
	s.Equal(72.0, ev.Metrics.Adjusted)
	s.Equal(72.0, ev.Metrics.Smoothed, "first sample seeds the smoother")

	s.helper.send(`{"event":"hr_data","bpm":80,"rr":[812.5]}`)
	ev = s.nextEvent(client.Telemetry)
	s.Equal(80.0, ev.Metrics.Adjusted)
	s.InDelta(73.2, ev.Metrics.Smoothed, 1e-9)
	s.Equal([]float64{812.5}, ev.RR)

	s.InDelta(73.2, s.client.Metrics().Smoothed, 1e-9)
}

func (s *ClientSuite) TestDeviceConnectionLifecycle() {
	s.connect()

	s.client.ConnectDevice("dev-1")
	s.helper.expectRequest(protocol.TypeConnect)
	s.helper.send(`{"event":"connected","id":"dev-1"}`)
	s.nextEvent(client.DeviceConnected)

	connected, id := s.client.CurrentDevice()
	s.True(connected)
	s.Equal("dev-1", id)

	// Reconnecting to the same device is a no-op.
	s.client.ConnectDevice("dev-1")

	// Switching devices releases the old one first.
	s.client.ConnectDevice("dev-2")
	s.helper.expectRequest(protocol.TypeDisconnect)
	req := s.helper.expectRequest(protocol.TypeConnect)
	s.Equal("dev-2", req.ID)

	s.helper.send(`{"event":"disconnected","reason":"out of range"}`)
	ev := s.nextEvent(client.DeviceDisconnected)
	s.Equal("out of range", ev.Reason)

	connected, _ = s.client.CurrentDevice()
	s.False(connected)
}

func (s *ClientSuite) TestHeartbeatTimeoutReconnects() {
	s.connect()

	// Keep the channel alive past one timeout window, then fall silent.
	s.helper.send(`{"event":"heartbeat"}`)

	down := s.nextEvent(client.BridgeDown)
	s.Contains(down.Reason, "heartbeat")

	// The retry cycle must bring a fresh connection and a new handshake.
	s.helper.waitConn()
	s.helper.expectRequest(protocol.TypeHandshake)
	s.nextEvent(client.BridgeUp)
}

func (s *ClientSuite) TestOversizedFrameForcesDisconnect() {
	s.connect()

	// Length prefix declaring 1 MiB: a protocol violation.
	s.helper.sendRawPrefix([]byte{0x00, 0x10, 0x00, 0x00})

	down := s.nextEvent(client.BridgeDown)
	s.Contains(down.Reason, "maximum payload")

	s.helper.waitConn()
	s.nextEvent(client.BridgeUp)
}

func (s *ClientSuite) TestMalformedMessageIsNotFatal() {
	s.connect()

	s.helper.send(`{broken json`)
	s.helper.send(`{"event":"battery_level","value":90}`) // unknown: ignored
	s.helper.send(`{"event":"hr_data","bpm":60}`)

	ev := s.nextEvent(client.Telemetry)
	s.Equal(60.0, ev.Metrics.Adjusted)
	s.Equal(state.Connected, s.client.ConnectionState())
}

func (s *ClientSuite) TestHelperErrorIsWarningOnly() {
	s.connect()

	s.helper.send(`{"event":"error","message":"bluetooth powered off"}`)
	ev := s.nextEvent(client.Warning)
	s.Equal("bluetooth powered off", ev.Reason)
	s.Equal(state.Connected, s.client.ConnectionState())
}

func (s *ClientSuite) TestExplicitDisconnectSuppressesRetry() {
	s.connect()

	s.client.Disconnect()
	s.nextEvent(client.BridgeDown)
	s.Equal(state.Disconnected, s.client.ConnectionState())

	// No reconnect may happen while disarmed.
	select {
	case conn := <-s.helper.conns:
		s.Failf("unexpected reconnect", "got connection %v", conn)
	case <-time.After(150 * time.Millisecond):
	}
}

func (s *ClientSuite) TestDispatchDroppedWhileDisconnected() {
	// Never connected: commands must be silently dropped, not queued.
	s.client.SetScanning(true)
	s.client.ConnectDevice("dev-1")

	select {
	case req := <-s.helper.requests:
		s.Failf("unexpected request", "got %q", req.Type)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func TestTerminalAfterMaxAttempts(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	c := client.New(client.Options{
		SocketPath:   filepath.Join(t.TempDir(), "absent.sock"),
		DialTimeout:  50 * time.Millisecond,
		BackoffBase:  time.Millisecond,
		BackoffCap:   5 * time.Millisecond,
		MaxAttempts:  3,
		NoAutoLaunch: true,
		Logger:       log,
	})
	defer c.Close()

	events, cancel := c.Subscribe()
	defer cancel()

	c.Connect()

	deadline := time.After(testTimeout)
	for {
		select {
		case ev := <-events:
			if ev.Kind != client.Terminal {
				continue
			}
			if ev.Reason == "" {
				t.Fatal("terminal event must carry actionable guidance")
			}
			if got := c.ConnectionState(); got != state.Disconnected {
				t.Fatalf("state after terminal = %v, want disconnected", got)
			}
			return
		case <-deadline:
			t.Fatal("never saw a terminal event")
		}
	}
}
