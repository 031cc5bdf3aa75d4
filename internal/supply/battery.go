package supply

import (
	"github.com/n30linux/pda-power/internal/fuelgauge"
	"github.com/n30linux/pda-power/internal/i2c"
)

// Battery exposes the fuel gauge as the "battery" supply.
type Battery struct {
	gauge *fuelgauge.Reader
	bus   i2c.Bus
}

// NewBattery creates a battery supply reading gauge over bus.
func NewBattery(gauge *fuelgauge.Reader, bus i2c.Bus) *Battery {
	return &Battery{gauge: gauge, bus: bus}
}

func (b *Battery) Name() string { return "battery" }

func (b *Battery) Type() Type { return TypeBattery }

func (b *Battery) Properties() []Property { return []Property{PropCapacity} }

// Property reads capacity from the gauge.
func (b *Battery) Property(p Property) (int, error) {
	if p != PropCapacity {
		return 0, ErrInvalidProperty
	}
	v, err := b.gauge.ReadCapacityPercent(b.bus)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
