package client

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/quantumbio/heartsync/internal/groutine"
	"github.com/quantumbio/heartsync/internal/hrm"
	"github.com/quantumbio/heartsync/internal/state"
)

// Synthetic is the second TelemetrySource implementation: it needs no helper
// process and synthesizes plausible events instead. It backs `--synthetic`
// demo modes and lets embedding hosts exercise their UI without hardware.
type Synthetic struct {
	store    *state.Store
	pipeline *hrm.Pipeline
	fanout   *fanout

	mu       sync.Mutex
	scanning bool
	ticker   *time.Ticker
	stopHR   chan struct{}
	hrDone   chan struct{}

	closeOnce sync.Once
}

var _ TelemetrySource = (*Synthetic)(nil)

// syntheticDevices is the fixed roster a synthetic scan discovers.
var syntheticDevices = []state.Device{
	{ID: "SYN-0001", RSSI: -48, Name: "Polar H10 (synthetic)", Services: []string{"180D"}},
	{ID: "SYN-0002", RSSI: -63, Name: "Garmin HRM-Pro (synthetic)", Services: []string{"180D"}},
	{ID: "SYN-0003", RSSI: -80, Name: "Unknown wearable", Services: []string{"180A"}},
}

// NewSynthetic creates a synthetic source with the given pipeline settings.
func NewSynthetic(cfg hrm.Config) *Synthetic {
	return &Synthetic{
		store:    state.NewStore(),
		pipeline: hrm.NewPipeline(cfg),
		fanout:   newFanout(64),
	}
}

// Connect immediately reports a healthy, authorized bridge.
func (s *Synthetic) Connect() {
	s.store.SetConnectionState(state.Connected)
	s.store.SetPermission(state.PermissionAuthorized)
	s.fanout.publish(Event{Kind: BridgeUp})
	s.fanout.publish(Event{Kind: PermissionChanged, Permission: state.PermissionAuthorized})
}

// Disconnect drops the pretend bridge and stops any telemetry stream.
func (s *Synthetic) Disconnect() {
	s.stopTelemetry()
	if s.store.SetConnectionState(state.Disconnected) {
		s.fanout.publish(Event{Kind: BridgeDown, Reason: "disconnect requested"})
	}
}

// Close shuts the source down and ends all subscriber channels.
func (s *Synthetic) Close() error {
	s.closeOnce.Do(func() {
		s.Disconnect()
		s.fanout.closeAll()
	})
	return nil
}

// Subscribe registers an event channel, mirroring Client.Subscribe.
func (s *Synthetic) Subscribe() (<-chan Event, func()) {
	return s.fanout.subscribe()
}

// SetScanning replays the fixed device roster when enabled.
func (s *Synthetic) SetScanning(on bool) {
	if s.store.ConnectionState() != state.Connected {
		return
	}
	s.mu.Lock()
	s.scanning = on
	s.mu.Unlock()

	if !on {
		return
	}
	s.store.ResetDevices()
	for _, dev := range syntheticDevices {
		stored, _ := s.store.UpsertDevice(dev)
		s.fanout.publish(Event{Kind: DeviceFound, Device: stored})
	}
}

// ConnectDevice starts a 1 Hz synthetic heart-rate stream for the device.
func (s *Synthetic) ConnectDevice(id string) {
	if s.store.ConnectionState() != state.Connected {
		return
	}
	if connected, current := s.store.DeviceConnection(); connected && current == id {
		return
	}
	s.stopTelemetry()

	s.store.SetDeviceConnected(id)
	s.pipeline.Reset()
	s.fanout.publish(Event{Kind: DeviceConnected, Device: state.Device{ID: id}})

	s.mu.Lock()
	s.ticker = time.NewTicker(time.Second)
	s.stopHR = make(chan struct{})
	s.hrDone = make(chan struct{})
	ticker, stop, done := s.ticker, s.stopHR, s.hrDone
	s.mu.Unlock()

	groutine.Go(nil, "synthetic-hr", func(context.Context) {
		defer close(done)
		start := time.Now()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				// Resting heart rate with a slow breathing oscillation.
				phase := now.Sub(start).Seconds() / 20 * 2 * math.Pi
				bpm := math.Round(72 + 6*math.Sin(phase))
				metrics := s.pipeline.Process(bpm)
				s.fanout.publish(Event{Kind: Telemetry, Metrics: metrics})
			}
		}
	})
}

// DisconnectDevice stops the stream and reports the sensor link down.
func (s *Synthetic) DisconnectDevice() {
	s.stopTelemetry()
	if connected, _ := s.store.DeviceConnection(); !connected {
		return
	}
	s.store.SetDeviceDisconnected()
	s.fanout.publish(Event{Kind: DeviceDisconnected, Reason: "disconnect requested"})
}

// RequestStatus replays the current permission state, like the helper does.
func (s *Synthetic) RequestStatus() {
	if s.store.ConnectionState() != state.Connected {
		return
	}
	s.fanout.publish(Event{Kind: PermissionChanged, Permission: s.store.Permission()})
}

// Devices returns the synthetic device snapshot.
func (s *Synthetic) Devices() []state.Device { return s.store.Devices() }

// Metrics returns the latest pipeline output.
func (s *Synthetic) Metrics() hrm.Metrics { return s.pipeline.Last() }

// ConnectionState returns the pretend bridge state.
func (s *Synthetic) ConnectionState() state.ConnectionState { return s.store.ConnectionState() }

// Permission returns the pretend permission state.
func (s *Synthetic) Permission() state.PermissionState { return s.store.Permission() }

// CurrentDevice returns the pretend sensor link.
func (s *Synthetic) CurrentDevice() (bool, string) { return s.store.DeviceConnection() }

func (s *Synthetic) stopTelemetry() {
	s.mu.Lock()
	ticker, stop, done := s.ticker, s.stopHR, s.hrDone
	s.ticker, s.stopHR, s.hrDone = nil, nil, nil
	s.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	close(stop)
	<-done // no publishes after this point
}
