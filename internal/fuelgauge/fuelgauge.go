// Package fuelgauge reads the battery charge from the n30 battery controller.
//
// The controller answers a single-byte read at a fixed bus address with the
// remaining charge. The byte is passed through unscaled.
package fuelgauge

import (
	"fmt"

	"github.com/n30linux/pda-power/internal/i2c"
)

// DefaultAddress is the bus address of the n30 battery controller.
const DefaultAddress uint16 = 0x0b

// Reader queries the fuel gauge. The bus is borrowed per call; the only
// state kept between calls is the last failure. Callers serialize access.
type Reader struct {
	addr    uint16
	lastErr error
}

// New creates a Reader for the gauge at addr.
func New(addr uint16) *Reader {
	return &Reader{addr: addr}
}

// Address returns the gauge's bus address.
func (r *Reader) Address() uint16 {
	return r.addr
}

// ReadCapacityPercent performs one read transaction and returns the raw
// capacity byte. Failures wrap i2c.ErrIOFailure and are not retried.
func (r *Reader) ReadCapacityPercent(bus i2c.Bus) (uint8, error) {
	v, err := bus.ReadByte(r.addr)
	if err != nil {
		r.lastErr = fmt.Errorf("fuelgauge: read capacity: %w", err)
		return 0, r.lastErr
	}
	r.lastErr = nil
	return v, nil
}

// LastError returns the failure from the most recent read, or nil if it succeeded.
func (r *Reader) LastError() error {
	return r.lastErr
}
