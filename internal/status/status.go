// Package status provides a thread-safe status tracker for the pda-power daemon.
// It is read by HTTP handlers and the MQTT heartbeat.
package status

import (
	"maps"
	"sync"
	"time"

	"github.com/n30linux/pda-power/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Board              string
	PollMs             int64
	DebounceMs         int64
	CapacityIntervalMs int64
	HeartbeatMs        int64
	Broker             string
	HTTPAddr           string
}

// GPS is the last observed GPS rail state.
type GPS struct {
	Present bool
	State   string // rail lifecycle state, e.g. "ACTIVE"
	Powered bool
	Err     string // last read failure, empty when Powered is valid
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	GPS GPS

	// Capacity is nil when the last gauge read failed or none has happened.
	Capacity    *int
	CapacityErr string

	// Lines is the debounced state of each charger supply by name.
	Lines     logic.Lines
	Baselined bool
	Counts    logic.Counts

	Suspended     bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// UpdateCharger sets the debounced supply states, baseline status, and event counts.
// Called from the control loop on every tick.
func (t *Tracker) UpdateCharger(lines logic.Lines, baselined bool, counts logic.Counts) {
	t.mu.Lock()
	t.snap.Lines = maps.Clone(lines)
	t.snap.Baselined = baselined
	t.snap.Counts = maps.Clone(counts)
	t.mu.Unlock()
}

// UpdateGPS records the GPS rail state. A non-nil err marks the power reading invalid.
func (t *Tracker) UpdateGPS(present bool, state string, powered bool, err error) {
	t.mu.Lock()
	t.snap.GPS = GPS{Present: present, State: state, Powered: powered}
	if err != nil {
		t.snap.GPS.Powered = false
		t.snap.GPS.Err = err.Error()
	}
	t.mu.Unlock()
}

// UpdateCapacity records a gauge read. On failure the previous value is
// dropped so consumers never see a stale capacity.
func (t *Tracker) UpdateCapacity(v uint8, err error) {
	t.mu.Lock()
	if err != nil {
		t.snap.Capacity = nil
		t.snap.CapacityErr = err.Error()
	} else {
		c := int(v)
		t.snap.Capacity = &c
		t.snap.CapacityErr = ""
	}
	t.mu.Unlock()
}

// SetSuspended records whether the suspend hooks are in effect.
func (t *Tracker) SetSuspended(suspended bool) {
	t.mu.Lock()
	t.snap.Suspended = suspended
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.Capacity != nil {
		c := *s.Capacity
		s.Capacity = &c
	}
	s.Lines = maps.Clone(s.Lines)
	s.Counts = maps.Clone(s.Counts)
	s.Now = time.Now()
	return s
}
