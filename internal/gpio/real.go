//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// RealProvider drives lines through the Linux GPIO character device.
// Chips are opened on first use and held until Close.
type RealProvider struct {
	mu    sync.Mutex
	chips map[string]*gpiocdev.Chip
	lines map[Pin]*gpiocdev.Line
}

// NewRealProvider creates a provider with no chips open yet.
func NewRealProvider() *RealProvider {
	return &RealProvider{
		chips: make(map[string]*gpiocdev.Chip),
		lines: make(map[Pin]*gpiocdev.Line),
	}
}

func (r *RealProvider) chip(name string) (*gpiocdev.Chip, error) {
	if c, ok := r.chips[name]; ok {
		return c, nil
	}
	c, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	r.chips[name] = c
	return c, nil
}

// Request takes ownership of pin without changing its direction or level.
func (r *RealProvider) Request(pin Pin, consumer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lines[pin]; ok {
		return fmt.Errorf("%w: %s already requested", ErrBusy, pin)
	}
	c, err := r.chip(pin.Chip)
	if err != nil {
		return err
	}
	l, err := c.RequestLine(pin.Line, gpiocdev.AsIs, gpiocdev.WithConsumer(consumer))
	if err != nil {
		if errors.Is(err, unix.EBUSY) {
			return fmt.Errorf("%w: %s: %v", ErrBusy, pin, err)
		}
		return fmt.Errorf("request %s: %w", pin, err)
	}
	r.lines[pin] = l
	return nil
}

// Release closes the line request. The line keeps its direction and level,
// so an output stays driven at its last value.
func (r *RealProvider) Release(pin Pin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lines[pin]
	if !ok {
		return nil
	}
	delete(r.lines, pin)

	if err := l.Close(); err != nil {
		return fmt.Errorf("close %s: %w", pin, err)
	}
	return nil
}

func (r *RealProvider) line(pin Pin) (*gpiocdev.Line, error) {
	l, ok := r.lines[pin]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRequested, pin)
	}
	return l, nil
}

// ConfigureOutput switches pin to an output driven to level.
func (r *RealProvider) ConfigureOutput(pin Pin, level bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.line(pin)
	if err != nil {
		return err
	}
	if err := l.Reconfigure(gpiocdev.AsOutput(levelValue(level))); err != nil {
		return fmt.Errorf("configure %s as output: %w", pin, err)
	}
	return nil
}

// ConfigureInput switches pin to an input.
func (r *RealProvider) ConfigureInput(pin Pin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.line(pin)
	if err != nil {
		return err
	}
	if err := l.Reconfigure(gpiocdev.AsInput); err != nil {
		return fmt.Errorf("configure %s as input: %w", pin, err)
	}
	return nil
}

// SetLevel drives pin high (true) or low (false).
func (r *RealProvider) SetLevel(pin Pin, level bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.line(pin)
	if err != nil {
		return err
	}
	if err := l.SetValue(levelValue(level)); err != nil {
		return fmt.Errorf("set %s: %w", pin, err)
	}
	return nil
}

// Level samples pin.
func (r *RealProvider) Level(pin Pin) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.line(pin)
	if err != nil {
		return false, err
	}
	v, err := l.Value()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", pin, err)
	}
	return v != 0, nil
}

// Close releases every requested line and closes the chips.
func (r *RealProvider) Close() error {
	r.mu.Lock()
	pins := make([]Pin, 0, len(r.lines))
	for p := range r.lines {
		pins = append(pins, p)
	}
	r.mu.Unlock()

	var errs []error
	for _, p := range pins {
		if err := r.Release(p); err != nil {
			errs = append(errs, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, c := range r.chips {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip %s: %w", name, err))
		}
		delete(r.chips, name)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

func levelValue(level bool) int {
	if level {
		return 1
	}
	return 0
}
