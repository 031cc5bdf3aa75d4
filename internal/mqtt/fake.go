package mqtt

import (
	"errors"

	"github.com/n30linux/pda-power/internal/logic"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Events contains all charger events that were published.
	Events []logic.Event

	// Payloads contains the JSON payloads for charger and GPS events, in order.
	Payloads [][]byte

	// GPSEvents contains all GPS events that were published.
	GPSEvents []GPSEvent

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Publish and PublishGPS.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	gpsHandler func(on bool)
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the charger event.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Events = append(f.Events, event)

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// PublishGPS records the GPS event.
func (f *FakePublisher) PublishGPS(event GPSEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.GPSEvents = append(f.GPSEvents, event)

	payload, err := FormatGPSPayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// SubscribeGPS stores handler for DeliverGPS.
func (f *FakePublisher) SubscribeGPS(handler func(on bool)) error {
	f.gpsHandler = handler
	return nil
}

// DeliverGPS simulates a message arriving on TopicGPSSet.
func (f *FakePublisher) DeliverGPS(payload []byte) error {
	if f.gpsHandler == nil {
		return errors.New("mqtt: no gps subscription")
	}
	on, err := ParseGPSCommand(payload)
	if err != nil {
		return err
	}
	f.gpsHandler(on)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.Events = nil
	f.Payloads = nil
	f.GPSEvents = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
