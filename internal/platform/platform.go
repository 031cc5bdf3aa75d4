// Package platform binds the power devices of one board to their GPIO and
// bus providers and drives their lifecycle.
//
// A Platform is the single owner of the devices. Every method takes the
// platform lock, so the control loop, HTTP handlers and MQTT callbacks may
// call in concurrently.
package platform

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/n30linux/pda-power/internal/board"
	"github.com/n30linux/pda-power/internal/fuelgauge"
	"github.com/n30linux/pda-power/internal/gpio"
	"github.com/n30linux/pda-power/internal/i2c"
	"github.com/n30linux/pda-power/internal/rail"
	"github.com/n30linux/pda-power/internal/supply"
)

// ErrNoDevice is returned for a device the board does not have.
var ErrNoDevice = errors.New("platform: device not present on this board")

// Consumer labels given to the GPIO provider.
const (
	LabelGPS     = "n35 GPS power"
	LabelCharger = "n30 charger detect"
)

// Platform owns the devices of one board.
type Platform struct {
	mu sync.Mutex

	board board.Board
	io    gpio.Provider
	bus   i2c.Bus

	gps     *rail.Controller
	charger *supply.Charger
	gauge   *fuelgauge.Reader
	battery *supply.Battery

	chargerAttached bool
	suspended       bool
}

// New creates the devices described by b. Nothing is attached yet.
func New(b board.Board, io gpio.Provider, bus i2c.Bus) *Platform {
	p := &Platform{
		board: b,
		io:    io,
		bus:   bus,
		gauge: fuelgauge.New(b.Battery.Address),
	}
	p.battery = supply.NewBattery(p.gauge, bus)
	if g := b.GPS; g != nil {
		p.gps = rail.New(rail.Config{
			Primary:   g.Module,
			Secondary: g.Antenna,
			ActiveLow: g.ActiveLow,
			Label:     LabelGPS,
		})
	}
	if c := b.Charger; c != nil {
		p.charger = supply.NewCharger(supply.ChargerConfig{
			AC:           c.AC,
			USB:          c.USB,
			ACActiveLow:  c.ACActiveLow,
			USBActiveLow: c.USBActiveLow,
			Label:        LabelCharger,
		})
	}
	return p
}

// Board returns the board description.
func (p *Platform) Board() board.Board {
	return p.board
}

// HasGPS reports whether the board has a GPS rail.
func (p *Platform) HasGPS() bool {
	return p.gps != nil
}

// HasCharger reports whether the board has charger presence lines.
func (p *Platform) HasCharger() bool {
	return p.charger != nil
}

// Attach attaches each device independently. Devices that fail stay
// detached; the failures are returned joined.
func (p *Platform) Attach() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.charger != nil && !p.chargerAttached {
		if err := p.charger.Attach(p.io); err != nil {
			errs = append(errs, fmt.Errorf("attach charger: %w", err))
		} else {
			p.chargerAttached = true
			log.Printf("platform: charger attached (ac=%s usb=%s)", p.board.Charger.AC, p.board.Charger.USB)
		}
	}
	if p.gps != nil && p.gps.State() == rail.Unattached {
		if err := p.gps.Attach(p.io); err != nil {
			errs = append(errs, fmt.Errorf("attach gps: %w", err))
		} else {
			log.Printf("platform: gps attached (module=%s antenna=%s)", p.board.GPS.Module, p.board.GPS.Antenna)
		}
	}
	log.Printf("platform: battery gauge at 0x%02x on bus %q", p.gauge.Address(), p.board.Battery.Bus)
	return errors.Join(errs...)
}

// Detach powers down and releases every device. Safe to call repeatedly.
func (p *Platform) Detach() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.gps != nil {
		if err := p.gps.Detach(); err != nil {
			errs = append(errs, fmt.Errorf("detach gps: %w", err))
		}
	}
	if p.charger != nil && p.chargerAttached {
		if err := p.charger.Detach(); err != nil {
			errs = append(errs, fmt.Errorf("detach charger: %w", err))
		}
		p.chargerAttached = false
	}
	p.suspended = false
	return errors.Join(errs...)
}

// Suspend runs the devices' suspend hooks. The platform counts as suspended
// even when a hook reports an error, since the rail is forced off regardless.
func (p *Platform) Suspend() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.suspended = true
	if p.gps != nil && p.gps.State() != rail.Unattached {
		if err := p.gps.Suspend(); err != nil {
			return fmt.Errorf("suspend gps: %w", err)
		}
	}
	return nil
}

// Resume runs the devices' resume hooks.
func (p *Platform) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gps != nil && p.gps.State() != rail.Unattached {
		if err := p.gps.Resume(); err != nil {
			return fmt.Errorf("resume gps: %w", err)
		}
	}
	p.suspended = false
	return nil
}

// Suspended reports whether the suspend hooks have run without a resume.
func (p *Platform) Suspended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.suspended
}

// SetGPSPower switches the GPS rail.
func (p *Platform) SetGPSPower(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gps == nil {
		return ErrNoDevice
	}
	return p.gps.SetPower(on)
}

// GPSPower reports whether the GPS rail is powered.
func (p *Platform) GPSPower() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gps == nil {
		return false, ErrNoDevice
	}
	return p.gps.Power()
}

// GPSState returns the GPS controller state, Unattached on boards without GPS.
func (p *Platform) GPSState() rail.State {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gps == nil {
		return rail.Unattached
	}
	return p.gps.State()
}

// Capacity reads the battery capacity from the fuel gauge.
func (p *Platform) Capacity() (uint8, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gauge.ReadCapacityPercent(p.bus)
}

// LastCapacityError returns the most recent gauge failure, if any.
func (p *Platform) LastCapacityError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gauge.LastError()
}

// ChargerOnline reports AC and USB presence.
func (p *Platform) ChargerOnline() (ac, usb bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.charger == nil {
		return false, false, ErrNoDevice
	}
	return p.charger.Online()
}

// Battery returns the battery supply.
func (p *Platform) Battery() supply.Supply {
	return &lockedSupply{mu: &p.mu, s: p.battery}
}

// Supplies returns every power supply on the board, battery first.
func (p *Platform) Supplies() []supply.Supply {
	out := []supply.Supply{p.Battery()}
	if p.charger != nil {
		out = append(out,
			&lockedSupply{mu: &p.mu, s: p.charger.Mains()},
			&lockedSupply{mu: &p.mu, s: p.charger.USB()},
		)
	}
	return out
}

// lockedSupply serializes property reads with the platform lock.
type lockedSupply struct {
	mu *sync.Mutex
	s  supply.Supply
}

func (l *lockedSupply) Name() string { return l.s.Name() }
func (l *lockedSupply) Type() supply.Type { return l.s.Type() }
func (l *lockedSupply) Properties() []supply.Property { return l.s.Properties() }

func (l *lockedSupply) Property(prop supply.Property) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Property(prop)
}
