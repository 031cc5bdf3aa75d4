package i2c

import (
	"fmt"
	"sync"
)

// FakeBus is a scripted Bus for tests. It is safe for concurrent use.
type FakeBus struct {
	mu sync.Mutex

	// Values holds the byte returned for each address.
	Values map[uint16]byte

	// NoAck lists addresses that do not acknowledge.
	NoAck map[uint16]bool

	// ReadError, if set, fails every transaction.
	ReadError error

	// Transactions counts ReadByte calls, including failed ones.
	Transactions int
}

// NewFakeBus creates a FakeBus with no devices present.
func NewFakeBus() *FakeBus {
	return &FakeBus{
		Values: make(map[uint16]byte),
		NoAck:  make(map[uint16]bool),
	}
}

// Set scripts the byte returned for addr and clears any no-ACK for it.
func (f *FakeBus) Set(addr uint16, v byte) {
	f.mu.Lock()
	f.Values[addr] = v
	delete(f.NoAck, addr)
	f.mu.Unlock()
}

// Unplug makes addr stop acknowledging.
func (f *FakeBus) Unplug(addr uint16) {
	f.mu.Lock()
	f.NoAck[addr] = true
	f.mu.Unlock()
}

// ReadByte returns the scripted value for addr.
func (f *FakeBus) ReadByte(addr uint16) (byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Transactions++
	if f.ReadError != nil {
		return 0, fmt.Errorf("%w: %w", ErrIOFailure, f.ReadError)
	}
	if f.NoAck[addr] {
		return 0, fmt.Errorf("%w: no ack from 0x%02x", ErrIOFailure, addr)
	}
	v, ok := f.Values[addr]
	if !ok {
		return 0, fmt.Errorf("%w: no device at 0x%02x", ErrIOFailure, addr)
	}
	return v, nil
}
