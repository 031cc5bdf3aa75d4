// Package supply adapts the power devices to the text surfaces status
// consumers read: a "0"/"1" power flag and power-supply style properties.
package supply

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidProperty is returned for properties a supply does not provide.
var ErrInvalidProperty = errors.New("supply: invalid property")

// Type is the power-supply class.
type Type string

const (
	TypeBattery Type = "Battery"
	TypeMains   Type = "Mains"
	TypeUSB     Type = "USB"
)

// Property names a readable integer property.
type Property string

const (
	PropCapacity Property = "capacity"
	PropOnline   Property = "online"
)

// Supply is a power-supply style object queried by generic consumers.
type Supply interface {
	Name() string
	Type() Type
	Properties() []Property
	// Property reads p. A failed read returns an error, never a stale value.
	Property(p Property) (int, error)
}

// FormatPowerFlag renders a power state as the single-line flag "1" or "0".
func FormatPowerFlag(on bool) string {
	if on {
		return "1\n"
	}
	return "0\n"
}

// ParsePowerFlag parses a written power flag. The value is an unsigned
// integer with an optional base prefix (0x, 0 for octal); non-zero means on.
func ParsePowerFlag(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, errors.New("supply: empty power flag")
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return false, fmt.Errorf("supply: parse power flag %q: %w", s, err)
	}
	return v != 0, nil
}

// Uevent renders a supply as POWER_SUPPLY_* lines. Properties whose read
// fails are left out.
func Uevent(s Supply) string {
	var b strings.Builder
	fmt.Fprintf(&b, "POWER_SUPPLY_NAME=%s\n", s.Name())
	fmt.Fprintf(&b, "POWER_SUPPLY_TYPE=%s\n", s.Type())
	for _, p := range s.Properties() {
		v, err := s.Property(p)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "POWER_SUPPLY_%s=%d\n", strings.ToUpper(string(p)), v)
	}
	return b.String()
}
