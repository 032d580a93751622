package state

import (
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Device is one discovered peripheral. The ID is the stable identity used
// for upsert; re-sightings update the descriptor in place.
type Device struct {
	ID       string   `json:"id"`
	RSSI     int      `json:"rssi"`
	Name     string   `json:"name,omitempty"`
	Services []string `json:"services,omitempty"`
}

// HasService reports whether the device advertised the given service UUID.
func (d Device) HasService(uuid string) bool {
	for _, s := range d.Services {
		if s == uuid {
			return true
		}
	}
	return false
}

// Store is the single owner of shared client state. All methods are safe for
// concurrent use and never invoke caller code while locked.
type Store struct {
	mu sync.Mutex

	devices *orderedmap.OrderedMap[string, Device]

	connState ConnectionState

	deviceConnected bool
	currentDeviceID string

	permission PermissionState

	lastHeartbeat time.Time
}

// NewStore returns an empty store in the Disconnected state.
func NewStore() *Store {
	return &Store{
		devices: orderedmap.New[string, Device](),
	}
}

// UpsertDevice inserts or refreshes a device by ID, preserving discovery
// order. It returns the stored descriptor and whether the ID was new.
func (s *Store) UpsertDevice(dev Device) (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.devices.Get(dev.ID)
	s.devices.Set(dev.ID, dev)
	return dev, !existed
}

// Devices returns a discovery-ordered snapshot of the device cache.
func (s *Store) Devices() []Device {
	s.mu.Lock()
	defer s.mu.Unlock()

	devs := make([]Device, 0, s.devices.Len())
	for pair := s.devices.Oldest(); pair != nil; pair = pair.Next() {
		devs = append(devs, pair.Value)
	}
	return devs
}

// Device looks up a single descriptor by ID.
func (s *Store) Device(id string) (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devices.Get(id)
}

// ResetDevices clears the cache at the start of a new scan session.
func (s *Store) ResetDevices() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = orderedmap.New[string, Device]()
}

// SetConnectionState records a bridge channel transition and reports whether
// the value actually changed.
func (s *Store) SetConnectionState(cs ConnectionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connState == cs {
		return false
	}
	s.connState = cs
	return true
}

// ConnectionState returns the current bridge channel state.
func (s *Store) ConnectionState() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState
}

// SetDeviceConnected records the helper-to-sensor link state.
func (s *Store) SetDeviceConnected(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceConnected = true
	s.currentDeviceID = id
}

// SetDeviceDisconnected clears the helper-to-sensor link state.
func (s *Store) SetDeviceDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceConnected = false
	s.currentDeviceID = ""
}

// DeviceConnection returns the sensor link flag and current device ID.
func (s *Store) DeviceConnection() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceConnected, s.currentDeviceID
}

// SetPermission records the latest permission report. Updates are
// idempotent: re-delivering the same state is normal and callers still
// re-notify consumers.
func (s *Store) SetPermission(p PermissionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permission = p
}

// Permission returns the last reported permission state.
func (s *Store) Permission() PermissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

// TouchHeartbeat records helper liveness at the given instant.
func (s *Store) TouchHeartbeat(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeat = now
}

// HeartbeatAge reports the time since the last heartbeat.
func (s *Store) HeartbeatAge(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastHeartbeat.IsZero() {
		return 0
	}
	return now.Sub(s.lastHeartbeat)
}
