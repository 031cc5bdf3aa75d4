// Package gpio provides digital line ownership and I/O with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"
)

// ErrBusy is returned by Request when the line is already owned elsewhere.
var ErrBusy = errors.New("gpio: line busy")

// ErrNotRequested is returned when operating on a line that was not requested.
var ErrNotRequested = errors.New("gpio: line not requested")

// Pin identifies a single line on a gpiochip.
type Pin struct {
	Chip string `yaml:"chip"`
	Line int    `yaml:"line"`
}

func (p Pin) String() string {
	return fmt.Sprintf("%s:%d", p.Chip, p.Line)
}

// Provider grants ownership of lines and drives or samples them.
// Levels are physical: true = high.
type Provider interface {
	// Request takes exclusive ownership of pin, labelled with consumer.
	// Returns ErrBusy (possibly wrapped) if the pin is owned elsewhere.
	Request(pin Pin, consumer string) error

	// Release gives up ownership. Releasing an unowned pin is a no-op.
	Release(pin Pin) error

	// ConfigureOutput makes pin an output driven to level.
	ConfigureOutput(pin Pin, level bool) error

	// ConfigureInput makes pin an input.
	ConfigureInput(pin Pin) error

	// SetLevel drives an output pin.
	SetLevel(pin Pin, level bool) error

	// Level samples the current level of pin.
	Level(pin Pin) (bool, error)
}
