package supply

import (
	"errors"
	"fmt"

	"github.com/n30linux/pda-power/internal/gpio"
)

// ErrChargerNotAttached is returned when reading a detached charger.
var ErrChargerNotAttached = errors.New("supply: charger not attached")

// ChargerConfig describes the AC and USB presence lines.
type ChargerConfig struct {
	AC           gpio.Pin
	USB          gpio.Pin
	ACActiveLow  bool
	USBActiveLow bool
	Label        string
}

// Charger samples the two presence lines.
type Charger struct {
	cfg ChargerConfig
	io  gpio.Provider
}

// NewCharger creates a detached charger.
func NewCharger(cfg ChargerConfig) *Charger {
	return &Charger{cfg: cfg}
}

// Attach requests both lines as inputs; on failure neither stays requested.
func (c *Charger) Attach(io gpio.Provider) error {
	if c.io != nil {
		return nil
	}
	if err := io.Request(c.cfg.AC, c.cfg.Label); err != nil {
		return fmt.Errorf("supply: acquire %s: %w", c.cfg.AC, err)
	}
	if err := io.Request(c.cfg.USB, c.cfg.Label); err != nil {
		err = fmt.Errorf("supply: acquire %s: %w", c.cfg.USB, err)
		return releaseAll(io, err, c.cfg.AC)
	}
	for _, pin := range []gpio.Pin{c.cfg.AC, c.cfg.USB} {
		if err := io.ConfigureInput(pin); err != nil {
			err = fmt.Errorf("supply: configure %s: %w", pin, err)
			return releaseAll(io, err, c.cfg.AC, c.cfg.USB)
		}
	}
	c.io = io
	return nil
}

func releaseAll(io gpio.Provider, err error, pins ...gpio.Pin) error {
	errs := []error{err}
	for _, pin := range pins {
		if rerr := io.Release(pin); rerr != nil {
			errs = append(errs, fmt.Errorf("supply: release %s: %w", pin, rerr))
		}
	}
	return errors.Join(errs...)
}

// Detach releases both lines. Detaching twice is a no-op.
func (c *Charger) Detach() error {
	if c.io == nil {
		return nil
	}
	err := errors.Join(c.io.Release(c.cfg.AC), c.io.Release(c.cfg.USB))
	c.io = nil
	return err
}

// Online reports AC and USB presence.
func (c *Charger) Online() (ac, usb bool, err error) {
	if c.io == nil {
		return false, false, ErrChargerNotAttached
	}
	acLevel, err := c.io.Level(c.cfg.AC)
	if err != nil {
		return false, false, fmt.Errorf("supply: read %s: %w", c.cfg.AC, err)
	}
	usbLevel, err := c.io.Level(c.cfg.USB)
	if err != nil {
		return false, false, fmt.Errorf("supply: read %s: %w", c.cfg.USB, err)
	}
	return acLevel != c.cfg.ACActiveLow, usbLevel != c.cfg.USBActiveLow, nil
}

// Mains returns the "ac" supply backed by this charger.
func (c *Charger) Mains() Supply { return &chargerSupply{c: c, usb: false} }

// USB returns the "usb" supply backed by this charger.
func (c *Charger) USB() Supply { return &chargerSupply{c: c, usb: true} }

type chargerSupply struct {
	c   *Charger
	usb bool
}

func (s *chargerSupply) Name() string {
	if s.usb {
		return "usb"
	}
	return "ac"
}

func (s *chargerSupply) Type() Type {
	if s.usb {
		return TypeUSB
	}
	return TypeMains
}

func (s *chargerSupply) Properties() []Property { return []Property{PropOnline} }

func (s *chargerSupply) Property(p Property) (int, error) {
	if p != PropOnline {
		return 0, ErrInvalidProperty
	}
	ac, usb, err := s.c.Online()
	if err != nil {
		return 0, err
	}
	online := ac
	if s.usb {
		online = usb
	}
	if online {
		return 1, nil
	}
	return 0, nil
}
