package i2c

import (
	"fmt"
	"sync"

	periphi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// RealBus reads from a host I2C adapter through periph.io.
type RealBus struct {
	mu  sync.Mutex
	bus periphi2c.BusCloser
}

// OpenRealBus initializes the host drivers and opens the named bus.
// An empty name selects the first bus found.
func OpenRealBus(name string) (*RealBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return &RealBus{bus: b}, nil
}

// ReadByte performs one read-only transaction of a single byte.
func (r *RealBus) ReadByte(addr uint16) (byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var buf [1]byte
	if err := r.bus.Tx(addr, nil, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: read 0x%02x: %w", ErrIOFailure, addr, err)
	}
	return buf[0], nil
}

// Close releases the bus.
func (r *RealBus) Close() error {
	return r.bus.Close()
}
