package gpio

import (
	"fmt"
	"sync"
)

// FakeProvider is an in-memory Provider for tests.
// It is safe for concurrent use.
type FakeProvider struct {
	mu sync.Mutex

	owners  map[Pin]string
	levels  map[Pin]bool
	outputs map[Pin]bool

	// RequestError, if set, is returned by every Request.
	RequestError error

	// LevelError, if set, is returned by Level.
	LevelError error

	// SetLevelError, if set, is returned by SetLevel and ConfigureOutput.
	SetLevelError error

	// ReleaseError, if set, is returned by Release after the pin is freed.
	ReleaseError error

	// Requests counts successful Request calls.
	Requests int

	// Releases counts Release calls that released an owned pin.
	Releases int
}

// NewFakeProvider creates a FakeProvider with every line free and low.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		owners:  make(map[Pin]string),
		levels:  make(map[Pin]bool),
		outputs: make(map[Pin]bool),
	}
}

// Hold marks pin as owned by another consumer, so Request fails with ErrBusy.
func (f *FakeProvider) Hold(pin Pin, consumer string) {
	f.mu.Lock()
	f.owners[pin] = consumer
	f.mu.Unlock()
}

// Force sets the level seen on pin regardless of who drives it.
// Used to simulate a line that disagrees with its driver, or an input.
func (f *FakeProvider) Force(pin Pin, level bool) {
	f.mu.Lock()
	f.levels[pin] = level
	f.mu.Unlock()
}

// Owner returns the consumer label owning pin, or "" if free.
func (f *FakeProvider) Owner(pin Pin) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owners[pin]
}

// IsOutput reports whether pin is currently configured as an output.
func (f *FakeProvider) IsOutput(pin Pin) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outputs[pin]
}

// Peek returns the level on pin without ownership checks.
func (f *FakeProvider) Peek(pin Pin) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[pin]
}

// Request takes ownership of pin.
func (f *FakeProvider) Request(pin Pin, consumer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.RequestError != nil {
		return f.RequestError
	}
	if owner, ok := f.owners[pin]; ok {
		return fmt.Errorf("%w: %s owned by %q", ErrBusy, pin, owner)
	}
	f.owners[pin] = consumer
	f.Requests++
	return nil
}

// Release frees pin and returns it to an input.
func (f *FakeProvider) Release(pin Pin) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.owners[pin]; !ok {
		return nil
	}
	delete(f.owners, pin)
	delete(f.outputs, pin)
	f.Releases++
	return f.ReleaseError
}

// ConfigureOutput makes pin an output at level.
func (f *FakeProvider) ConfigureOutput(pin Pin, level bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.owners[pin]; !ok {
		return fmt.Errorf("%w: %s", ErrNotRequested, pin)
	}
	if f.SetLevelError != nil {
		return f.SetLevelError
	}
	f.outputs[pin] = true
	f.levels[pin] = level
	return nil
}

// ConfigureInput makes pin an input. The level is left as last forced.
func (f *FakeProvider) ConfigureInput(pin Pin) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.owners[pin]; !ok {
		return fmt.Errorf("%w: %s", ErrNotRequested, pin)
	}
	f.outputs[pin] = false
	return nil
}

// SetLevel drives pin.
func (f *FakeProvider) SetLevel(pin Pin, level bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.owners[pin]; !ok {
		return fmt.Errorf("%w: %s", ErrNotRequested, pin)
	}
	if f.SetLevelError != nil {
		return f.SetLevelError
	}
	if !f.outputs[pin] {
		return fmt.Errorf("gpio: %s is not an output", pin)
	}
	f.levels[pin] = level
	return nil
}

// Level returns the level on pin.
func (f *FakeProvider) Level(pin Pin) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.owners[pin]; !ok {
		return false, fmt.Errorf("%w: %s", ErrNotRequested, pin)
	}
	if f.LevelError != nil {
		return false, f.LevelError
	}
	return f.levels[pin], nil
}
