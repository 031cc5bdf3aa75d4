// Package mqtt provides MQTT publishing and GPS power commands with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/n30linux/pda-power/internal/logic"
	"github.com/n30linux/pda-power/internal/supply"
)

// Topic is the MQTT topic for charger and GPS events.
const Topic = "pda/power/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "pda/power/system"

// TopicGPSSet receives GPS power commands ("0"/"1").
const TopicGPSSet = "pda/power/gps/set"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a charger event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishGPS sends a GPS power change to the broker.
	PublishGPS(event GPSEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// CommandSource delivers GPS power commands received from the broker.
type CommandSource interface {
	// SubscribeGPS registers handler for GPS power commands.
	// The handler runs on the MQTT client's goroutine.
	SubscribeGPS(handler func(on bool)) error
}

// ClientID returns a unique client id for this daemon instance.
func ClientID() string {
	return "pda-power-" + uuid.NewString()
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "SUSPEND", "RESUME"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// GPSEvent is a change of the GPS rail requested through one of the surfaces.
type GPSEvent struct {
	Timestamp time.Time
	Power     bool
	Source    string // e.g., "http", "mqtt", "console", "resume"
}

// Payload represents the MQTT message payload for a charger event.
type Payload struct {
	Power PowerPayload `json:"power"`
}

// PowerPayload contains the charger event details. Lines holds every
// charger supply's state after the change.
type PowerPayload struct {
	Timestamp string            `json:"timestamp"`
	Event     string            `json:"event"`
	Supply    string            `json:"supply"`
	State     string            `json:"state"`
	Lines     map[string]string `json:"lines"`
}

// FormatPayload creates the JSON payload for a charger event.
func FormatPayload(event logic.Event) ([]byte, error) {
	lines := make(map[string]string, len(event.Lines))
	for name, st := range event.Lines {
		lines[name] = string(st)
	}
	payload := Payload{
		Power: PowerPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Supply:    event.Supply,
			State:     string(event.State),
			Lines:     lines,
		},
	}
	return json.Marshal(payload)
}

// GPSPayload represents the MQTT message payload for a GPS event.
type GPSPayload struct {
	GPS GPSPayloadInner `json:"gps"`
}

// GPSPayloadInner contains the GPS event details.
type GPSPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Power     string `json:"power"`
	Source    string `json:"source,omitempty"`
}

// FormatGPSPayload creates the JSON payload for a GPS event.
func FormatGPSPayload(event GPSEvent) ([]byte, error) {
	name, power := "GPS_OFF", "0"
	if event.Power {
		name, power = "GPS_ON", "1"
	}
	return json.Marshal(GPSPayload{
		GPS: GPSPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     name,
			Power:     power,
			Source:    event.Source,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// ParseGPSCommand decodes a GPS power command payload.
func ParseGPSCommand(payload []byte) (bool, error) {
	return supply.ParsePowerFlag(string(payload))
}
