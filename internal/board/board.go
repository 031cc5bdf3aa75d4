// Package board describes the wiring of each supported PDA variant.
//
// The S3C2410 GPIO banks appear as one gpiochip each, in bank order:
// GPA is gpiochip0, GPB gpiochip1, and so on. A YAML file can override any
// field for kernels that number them differently.
package board

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/n30linux/pda-power/internal/fuelgauge"
	"github.com/n30linux/pda-power/internal/gpio"
)

// GPS describes the GPS power rail. Both lines gate the same rail.
type GPS struct {
	Module    gpio.Pin `yaml:"module"`
	Antenna   gpio.Pin `yaml:"antenna"`
	ActiveLow bool     `yaml:"active_low"`
}

// Charger describes the AC and USB presence lines.
type Charger struct {
	AC           gpio.Pin `yaml:"ac"`
	USB          gpio.Pin `yaml:"usb"`
	ACActiveLow  bool     `yaml:"ac_active_low"`
	USBActiveLow bool     `yaml:"usb_active_low"`
}

// Battery describes the fuel gauge.
type Battery struct {
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
}

// Board is the wiring of one variant. GPS is nil on boards without it.
type Board struct {
	Name    string   `yaml:"name"`
	GPS     *GPS     `yaml:"gps"`
	Charger *Charger `yaml:"charger"`
	Battery Battery  `yaml:"battery"`
}

func bank(letter byte, line int) gpio.Pin {
	return gpio.Pin{Chip: fmt.Sprintf("gpiochip%d", letter-'A'), Line: line}
}

func n30() Board {
	return Board{
		Name: "n30",
		Charger: &Charger{
			AC:  bank('C', 7),
			USB: bank('G', 1),
		},
		Battery: Battery{Bus: "0", Address: fuelgauge.DefaultAddress},
	}
}

func n35() Board {
	b := n30()
	b.Name = "n35"
	// Module power on GPB4, antenna power on GPG11; both low = powered.
	b.GPS = &GPS{
		Module:    bank('B', 4),
		Antenna:   bank('G', 11),
		ActiveLow: true,
	}
	return b
}

var builtin = map[string]func() Board{
	"n30": n30,
	"n35": n35,
}

// Names returns the built-in board names in order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a copy of the named built-in board.
func Lookup(name string) (Board, error) {
	f, ok := builtin[name]
	if !ok {
		return Board{}, fmt.Errorf("unknown board %q (known: %v)", name, Names())
	}
	return f(), nil
}

// Parse applies YAML overrides on top of base.
func Parse(base Board, data []byte) (Board, error) {
	b := base.clone()
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Board{}, fmt.Errorf("parsing board config: %w", err)
	}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

// Load reads YAML overrides from path on top of base.
func Load(base Board, path string) (Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Board{}, fmt.Errorf("reading board config: %w", err)
	}
	return Parse(base, data)
}

func (b Board) clone() Board {
	if b.GPS != nil {
		g := *b.GPS
		b.GPS = &g
	}
	if b.Charger != nil {
		c := *b.Charger
		b.Charger = &c
	}
	return b
}

// Validate checks that the wiring is usable.
func (b Board) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("board config missing name")
	}
	if b.Battery.Address == 0 || b.Battery.Address > 0x7f {
		return fmt.Errorf("board %s: invalid fuel gauge address 0x%02x", b.Name, b.Battery.Address)
	}
	if g := b.GPS; g != nil {
		if g.Module == g.Antenna {
			return fmt.Errorf("board %s: gps module and antenna share pin %s", b.Name, g.Module)
		}
		if g.Module.Chip == "" || g.Antenna.Chip == "" {
			return fmt.Errorf("board %s: gps pin missing chip", b.Name)
		}
	}
	if c := b.Charger; c != nil {
		if c.AC == c.USB {
			return fmt.Errorf("board %s: charger ac and usb share pin %s", b.Name, c.AC)
		}
		if c.AC.Chip == "" || c.USB.Chip == "" {
			return fmt.Errorf("board %s: charger pin missing chip", b.Name)
		}
	}
	return nil
}
