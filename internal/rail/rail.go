// Package rail controls a power rail gated by two output lines.
//
// The hardware ANDs both lines into one power path, so the controller always
// drives them to the same level and only reports "on" when both read on.
// The controller holds no locks; callers serialize access.
package rail

import (
	"errors"
	"fmt"

	"github.com/n30linux/pda-power/internal/gpio"
)

var (
	// ErrNotAttached is returned by operations called outside the attached lifetime.
	ErrNotAttached = errors.New("rail: not attached")

	// ErrAlreadyAttached is returned by Attach on an attached controller.
	ErrAlreadyAttached = errors.New("rail: already attached")
)

// AcquireError reports a pin that could not be acquired during Attach.
type AcquireError struct {
	Pin gpio.Pin
	Err error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("rail: acquire %s: %v", e.Pin, e.Err)
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

// State is the controller lifecycle state.
type State int

const (
	Unattached State = iota
	Active
	Suspended
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "UNATTACHED"
	case Active:
		return "ACTIVE"
	case Suspended:
		return "SUSPENDED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config describes the two gating lines of a rail.
type Config struct {
	Primary   gpio.Pin
	Secondary gpio.Pin
	// ActiveLow means the rail is powered when the lines are driven low.
	ActiveLow bool
	// Label is the consumer name given to the GPIO provider.
	Label string
}

// Controller owns both gating lines for its attached lifetime.
type Controller struct {
	cfg   Config
	io    gpio.Provider
	state State
	saved bool // power level recorded by Suspend
}

// New creates an unattached controller.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// physical maps a logical power level to the line level.
func (c *Controller) physical(on bool) bool {
	return on != c.cfg.ActiveLow
}

// Attach requests both lines, configures them as outputs and drives the rail off.
// Ownership is all-or-nothing: on failure no line stays requested.
func (c *Controller) Attach(io gpio.Provider) error {
	if c.state != Unattached {
		return ErrAlreadyAttached
	}

	if err := io.Request(c.cfg.Primary, c.cfg.Label); err != nil {
		return &AcquireError{Pin: c.cfg.Primary, Err: err}
	}
	if err := io.Request(c.cfg.Secondary, c.cfg.Label); err != nil {
		return &AcquireError{Pin: c.cfg.Secondary, Err: release(io, err, c.cfg.Primary)}
	}

	off := c.physical(false)
	for _, pin := range []gpio.Pin{c.cfg.Primary, c.cfg.Secondary} {
		if err := io.ConfigureOutput(pin, off); err != nil {
			err = fmt.Errorf("rail: configure %s: %w", pin, err)
			return release(io, err, c.cfg.Primary, c.cfg.Secondary)
		}
	}

	c.io = io
	c.state = Active
	c.saved = false
	return nil
}

// SetPower drives both lines to the level for on.
// While suspended the rail stays off and the request is applied on Resume.
func (c *Controller) SetPower(on bool) error {
	switch c.state {
	case Unattached:
		return ErrNotAttached
	case Suspended:
		c.saved = on
		return nil
	}
	return c.drive(on)
}

func (c *Controller) drive(on bool) error {
	level := c.physical(on)
	var errs []error
	if err := c.io.SetLevel(c.cfg.Primary, level); err != nil {
		errs = append(errs, fmt.Errorf("rail: set %s: %w", c.cfg.Primary, err))
	}
	if err := c.io.SetLevel(c.cfg.Secondary, level); err != nil {
		errs = append(errs, fmt.Errorf("rail: set %s: %w", c.cfg.Secondary, err))
	}
	return errors.Join(errs...)
}

// Power reports whether the rail is powered: both lines must read on.
func (c *Controller) Power() (bool, error) {
	if c.state == Unattached {
		return false, ErrNotAttached
	}

	want := c.physical(true)
	primary, err := c.io.Level(c.cfg.Primary)
	if err != nil {
		return false, fmt.Errorf("rail: read %s: %w", c.cfg.Primary, err)
	}
	secondary, err := c.io.Level(c.cfg.Secondary)
	if err != nil {
		return false, fmt.Errorf("rail: read %s: %w", c.cfg.Secondary, err)
	}
	return primary == want && secondary == want, nil
}

// Suspend records the current power level and forces the rail off.
// A second Suspend before Resume keeps the first snapshot.
func (c *Controller) Suspend() error {
	switch c.state {
	case Unattached:
		return ErrNotAttached
	case Suspended:
		return nil
	}

	// An unreadable rail is recorded as off but still forced off.
	on, readErr := c.Power()
	if readErr != nil {
		on = false
	}
	driveErr := c.drive(false)
	c.saved = on
	c.state = Suspended
	return errors.Join(readErr, driveErr)
}

// Resume restores the level recorded by Suspend.
// Without a prior Suspend the rail is driven off. If driving fails the
// controller stays suspended with its snapshot, so Resume can be retried.
func (c *Controller) Resume() error {
	if c.state == Unattached {
		return ErrNotAttached
	}

	on := c.state == Suspended && c.saved
	if err := c.drive(on); err != nil {
		return err
	}
	c.state = Active
	c.saved = false
	return nil
}

// Detach forces the rail off and releases both lines.
// Detaching an unattached controller is a no-op.
func (c *Controller) Detach() error {
	if c.state == Unattached {
		return nil
	}

	var errs []error
	if err := c.drive(false); err != nil {
		errs = append(errs, err)
	}
	if err := c.io.Release(c.cfg.Secondary); err != nil {
		errs = append(errs, fmt.Errorf("rail: release %s: %w", c.cfg.Secondary, err))
	}
	if err := c.io.Release(c.cfg.Primary); err != nil {
		errs = append(errs, fmt.Errorf("rail: release %s: %w", c.cfg.Primary, err))
	}

	c.io = nil
	c.state = Unattached
	c.saved = false
	return errors.Join(errs...)
}

// release frees pins after a failed attach and joins any release failure
// onto err.
func release(io gpio.Provider, err error, pins ...gpio.Pin) error {
	errs := []error{err}
	for _, pin := range pins {
		if rerr := io.Release(pin); rerr != nil {
			errs = append(errs, fmt.Errorf("rail: release %s: %w", pin, rerr))
		}
	}
	if len(errs) == 1 {
		return err
	}
	return errors.Join(errs...)
}
