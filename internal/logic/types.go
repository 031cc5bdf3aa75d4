// Package logic debounces the online state of power supplies and turns
// stable changes into events.
//
// Supplies are tracked by name ("ac", "usb"). Nothing here touches hardware,
// MQTT or the clock: every sample carries its own time.
package logic

import (
	"strings"
	"time"
)

// State is the debounced online state of one supply.
type State string

const (
	StateOnline  State = "ONLINE"
	StateOffline State = "OFFLINE"
)

// StateOf maps an online reading to its State.
func StateOf(online bool) State {
	if online {
		return StateOnline
	}
	return StateOffline
}

// EventType names a change, e.g. "AC_ONLINE" or "USB_OFFLINE".
type EventType string

// EventTypeFor returns the event for supply settling into s.
func EventTypeFor(supply string, s State) EventType {
	return EventType(strings.ToUpper(supply) + "_" + string(s))
}

// Lines maps supply name to its stable state. A supply that has not
// settled yet maps to "".
type Lines map[string]State

// Counts holds the number of events of each type since startup.
type Counts map[EventType]int

// Event is a debounced change of one supply.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Supply    string
	State     State
	// Lines is every tracked supply's stable state after the change.
	Lines Lines
}

// Heartbeat is emitted periodically once every supply has settled.
type Heartbeat struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}
