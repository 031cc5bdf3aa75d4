package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/n30linux/pda-power/internal/platform"
	"github.com/n30linux/pda-power/internal/supply"
)

// errExit is returned by exec when the user asks to leave.
var errExit = errors.New("exit")

// console runs commands against a locally attached platform.
type console struct {
	p   *platform.Platform
	out io.Writer
}

// run reads commands until EOF or exit.
func (c *console) run(rl *readline.Instance) {
	c.printHelp()
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			return
		}
		if err := c.exec(line); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

// exec runs a single command line.
func (c *console) exec(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
		return nil
	case "gps", "g":
		return c.cmdGPS(args)
	case "battery", "b":
		return c.cmdBattery()
	case "charger", "c":
		return c.cmdCharger()
	case "suspend":
		if err := c.p.Suspend(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "suspended")
		return nil
	case "resume":
		if err := c.p.Resume(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "resumed")
		return nil
	case "exit", "quit", "q":
		return errExit
	}
	return fmt.Errorf("unknown command %q (try help)", cmd)
}

func (c *console) cmdGPS(args []string) error {
	if !c.p.HasGPS() {
		return platform.ErrNoDevice
	}
	if len(args) > 0 {
		var on bool
		switch strings.ToLower(args[0]) {
		case "on":
			on = true
		case "off":
			on = false
		default:
			v, err := supply.ParsePowerFlag(args[0])
			if err != nil {
				return fmt.Errorf("usage: gps [on|off|0|1]")
			}
			on = v
		}
		if err := c.p.SetGPSPower(on); err != nil {
			return err
		}
	}

	on, err := c.p.GPSPower()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "gps_power: %s", supply.FormatPowerFlag(on))
	fmt.Fprintf(c.out, "state: %s\n", c.p.GPSState())
	return nil
}

func (c *console) cmdBattery() error {
	fmt.Fprint(c.out, supply.Uevent(c.p.Battery()))
	if err := c.p.LastCapacityError(); err != nil {
		fmt.Fprintf(c.out, "last error: %v\n", err)
	}
	return nil
}

func (c *console) cmdCharger() error {
	if !c.p.HasCharger() {
		return platform.ErrNoDevice
	}
	for _, s := range c.p.Supplies() {
		if s.Type() == supply.TypeBattery {
			continue
		}
		fmt.Fprint(c.out, supply.Uevent(s))
	}
	return nil
}

func (c *console) printHelp() {
	fmt.Fprintf(c.out, `Board %s. Commands:
  gps [on|off]  show or switch the GPS rail
  battery       fuel gauge reading
  charger       AC and USB presence
  suspend       run the suspend hooks
  resume        run the resume hooks
  help          this text
  exit          detach and quit
`, c.p.Board().Name)
}
