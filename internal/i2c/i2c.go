// Package i2c provides single-byte read transactions on a shared two-wire bus.
// The real implementation uses periph.io; the fake scripts responses per address.
package i2c

import "errors"

// ErrIOFailure marks a failed bus transaction: no acknowledgment, bus busy
// or timeout. Callers decide whether to retry.
var ErrIOFailure = errors.New("i2c: transaction failed")

// Bus performs blocking read transactions against a peripheral address.
// The bus is shared and externally arbitrated; implementations serialize
// their own transactions.
type Bus interface {
	// ReadByte reads one byte from the peripheral at addr.
	// Errors wrap ErrIOFailure.
	ReadByte(addr uint16) (byte, error)
}
