package status

import (
	"encoding/json"
	"strings"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Board         string      `json:"board"`
	GPS           *GPSJSON    `json:"gps,omitempty"`
	Battery       BatteryJSON `json:"battery"`
	Charger       ChargerJSON `json:"charger"`
	Suspended     bool        `json:"suspended"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"event_counts"`
	Config        ConfigJSON  `json:"config"`
}

// GPSJSON reports the GPS rail. Omitted on boards without GPS.
type GPSJSON struct {
	State string `json:"state"`
	Power string `json:"power"` // "0" or "1"
	Error string `json:"error,omitempty"`
}

// BatteryJSON reports the fuel gauge. Capacity is null when the read failed.
type BatteryJSON struct {
	Capacity *int   `json:"capacity"`
	Error    string `json:"error,omitempty"`
}

// ChargerJSON reports the debounced supply states keyed by supply name.
type ChargerJSON struct {
	Lines map[string]string `json:"lines"`
	Ready bool              `json:"ready"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON maps lower-case event names ("ac_online") to their counts.
type CountsJSON map[string]int

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs             int64  `json:"poll_ms"`
	DebounceMs         int64  `json:"debounce_ms"`
	CapacityIntervalMs int64  `json:"capacity_interval_ms"`
	HeartbeatMs        int64  `json:"heartbeat_ms"`
	Broker             string `json:"broker"`
	HTTPAddr           string `json:"http_addr"`
}

func stateOrUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Board: snap.Config.Board,
		Battery: BatteryJSON{
			Capacity: snap.Capacity,
			Error:    snap.CapacityErr,
		},
		Charger: ChargerJSON{
			Lines: make(map[string]string, len(snap.Lines)),
			Ready: snap.Baselined,
		},
		Suspended:     snap.Suspended,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        make(CountsJSON, len(snap.Counts)),
		Config: ConfigJSON{
			PollMs:             snap.Config.PollMs,
			DebounceMs:         snap.Config.DebounceMs,
			CapacityIntervalMs: snap.Config.CapacityIntervalMs,
			HeartbeatMs:        snap.Config.HeartbeatMs,
			Broker:             snap.Config.Broker,
			HTTPAddr:           snap.Config.HTTPAddr,
		},
	}

	for name, st := range snap.Lines {
		inner.Charger.Lines[name] = stateOrUnknown(string(st))
	}
	for typ, n := range snap.Counts {
		inner.Counts[strings.ToLower(string(typ))] = n
	}

	if snap.GPS.Present {
		power := "0"
		if snap.GPS.Powered {
			power = "1"
		}
		inner.GPS = &GPSJSON{
			State: stateOrUnknown(snap.GPS.State),
			Power: power,
			Error: snap.GPS.Err,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
