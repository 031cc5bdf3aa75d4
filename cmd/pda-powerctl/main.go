// Command pda-powerctl is an interactive console for bringing up the power
// devices of an Acer n30/n35 without the daemon. It owns the lines while it
// runs, so it cannot run alongside pda-power.
package main

import (
	"flag"
	"log"

	"github.com/chzyer/readline"

	"github.com/n30linux/pda-power/internal/board"
	"github.com/n30linux/pda-power/internal/gpio"
	"github.com/n30linux/pda-power/internal/i2c"
	"github.com/n30linux/pda-power/internal/platform"
)

func main() {
	boardName := flag.String("board", "n35", "Board variant (n30, n35)")
	boardConfig := flag.String("board-config", "", "YAML file overriding the board wiring")
	flag.Parse()

	b, err := board.Lookup(*boardName)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if *boardConfig != "" {
		if b, err = board.Load(b, *boardConfig); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          b.Name + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Fatalf("fatal: readline: %v", err)
	}
	defer rl.Close()
	log.SetOutput(rl.Stderr())

	io := gpio.NewRealProvider()
	defer io.Close()

	bus, err := i2c.OpenRealBus(b.Battery.Bus)
	if err != nil {
		log.Fatalf("fatal: init i2c: %v", err)
	}
	defer bus.Close()

	p := platform.New(b, io, bus)
	if err := p.Attach(); err != nil {
		log.Printf("attach: %v", err)
	}
	defer func() {
		if err := p.Detach(); err != nil {
			log.Printf("detach: %v", err)
		}
	}()

	c := &console{p: p, out: rl.Stdout()}
	c.run(rl)
}
