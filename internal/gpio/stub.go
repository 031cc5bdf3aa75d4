//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealProvider is not available on non-Linux platforms.
type RealProvider struct{}

// NewRealProvider returns a provider whose every operation fails.
func NewRealProvider() *RealProvider {
	return &RealProvider{}
}

// Request is not implemented on non-Linux platforms.
func (r *RealProvider) Request(pin Pin, consumer string) error { return errUnsupported }

// Release is a no-op on non-Linux platforms.
func (r *RealProvider) Release(pin Pin) error { return nil }

// ConfigureOutput is not implemented on non-Linux platforms.
func (r *RealProvider) ConfigureOutput(pin Pin, level bool) error { return errUnsupported }

// ConfigureInput is not implemented on non-Linux platforms.
func (r *RealProvider) ConfigureInput(pin Pin) error { return errUnsupported }

// SetLevel is not implemented on non-Linux platforms.
func (r *RealProvider) SetLevel(pin Pin, level bool) error { return errUnsupported }

// Level is not implemented on non-Linux platforms.
func (r *RealProvider) Level(pin Pin) (bool, error) { return false, errUnsupported }

// Close is a no-op on non-Linux platforms.
func (r *RealProvider) Close() error { return nil }
