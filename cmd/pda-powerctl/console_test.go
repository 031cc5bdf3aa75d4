package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/n30linux/pda-power/internal/board"
	"github.com/n30linux/pda-power/internal/fuelgauge"
	"github.com/n30linux/pda-power/internal/gpio"
	"github.com/n30linux/pda-power/internal/i2c"
	"github.com/n30linux/pda-power/internal/platform"
)

func newTestConsole(t *testing.T, name string) (*console, *bytes.Buffer, *gpio.FakeProvider, *i2c.FakeBus) {
	t.Helper()
	b, err := board.Lookup(name)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	io := gpio.NewFakeProvider()
	bus := i2c.NewFakeBus()
	bus.Set(fuelgauge.DefaultAddress, 0x32)
	p := platform.New(b, io, bus)
	if err := p.Attach(); err != nil {
		t.Fatalf("attach: %v", err)
	}
	var out bytes.Buffer
	return &console{p: p, out: &out}, &out, io, bus
}

func TestConsoleGPS(t *testing.T) {
	c, out, _, _ := newTestConsole(t, "n35")

	tests := []struct {
		line string
		want string
	}{
		{"gps", "gps_power: 0\n"},
		{"gps on", "gps_power: 1\n"},
		{"GPS OFF", "gps_power: 0\n"},
		{"g 1", "gps_power: 1\n"},
		{"gps 0x0", "gps_power: 0\n"},
	}
	for _, tt := range tests {
		out.Reset()
		if err := c.exec(tt.line); err != nil {
			t.Fatalf("%q: %v", tt.line, err)
		}
		if !strings.HasPrefix(out.String(), tt.want) {
			t.Errorf("%q: got %q, want prefix %q", tt.line, out.String(), tt.want)
		}
	}

	if err := c.exec("gps sideways"); err == nil {
		t.Error("expected usage error")
	}
}

func TestConsoleGPSOnN30(t *testing.T) {
	c, _, _, _ := newTestConsole(t, "n30")

	if err := c.exec("gps on"); !errors.Is(err, platform.ErrNoDevice) {
		t.Errorf("expected ErrNoDevice, got %v", err)
	}
}

func TestConsoleBattery(t *testing.T) {
	c, out, _, bus := newTestConsole(t, "n30")

	c.exec("battery")
	if !strings.Contains(out.String(), "POWER_SUPPLY_CAPACITY=50\n") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	bus.Unplug(fuelgauge.DefaultAddress)
	c.exec("b")
	if strings.Contains(out.String(), "CAPACITY") {
		t.Errorf("capacity should be absent: %q", out.String())
	}
	if !strings.Contains(out.String(), "last error:") {
		t.Errorf("expected last error line: %q", out.String())
	}
}

func TestConsoleCharger(t *testing.T) {
	c, out, io, _ := newTestConsole(t, "n30")
	io.Force(c.p.Board().Charger.USB, true)

	if err := c.exec("charger"); err != nil {
		t.Fatalf("charger: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "POWER_SUPPLY_NAME=ac\nPOWER_SUPPLY_TYPE=Mains\nPOWER_SUPPLY_ONLINE=0\n") {
		t.Errorf("ac block missing: %q", got)
	}
	if !strings.Contains(got, "POWER_SUPPLY_NAME=usb\nPOWER_SUPPLY_TYPE=USB\nPOWER_SUPPLY_ONLINE=1\n") {
		t.Errorf("usb block missing: %q", got)
	}
	if strings.Contains(got, "battery") {
		t.Errorf("battery should not be listed: %q", got)
	}
}

func TestConsoleSuspendResume(t *testing.T) {
	c, out, _, _ := newTestConsole(t, "n35")

	c.exec("gps on")
	c.exec("suspend")
	out.Reset()
	c.exec("gps")
	if !strings.Contains(out.String(), "gps_power: 0\nstate: SUSPENDED\n") {
		t.Errorf("while suspended: %q", out.String())
	}

	c.exec("resume")
	out.Reset()
	c.exec("gps")
	if !strings.Contains(out.String(), "gps_power: 1\nstate: ACTIVE\n") {
		t.Errorf("after resume: %q", out.String())
	}
}

func TestConsoleMisc(t *testing.T) {
	c, out, _, _ := newTestConsole(t, "n35")

	if err := c.exec("   "); err != nil {
		t.Errorf("blank line: %v", err)
	}
	if err := c.exec("help"); err != nil || !strings.Contains(out.String(), "Board n35") {
		t.Errorf("help: err=%v out=%q", err, out.String())
	}
	if err := c.exec("frobnicate"); err == nil {
		t.Error("expected unknown command error")
	}
	for _, cmd := range []string{"exit", "quit", "q"} {
		if err := c.exec(cmd); !errors.Is(err, errExit) {
			t.Errorf("%s: expected errExit, got %v", cmd, err)
		}
	}
}
