// Command pda-power owns the power devices of an Acer n30/n35 PDA and
// publishes their state to MQTT and HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/n30linux/pda-power/internal/board"
	"github.com/n30linux/pda-power/internal/gpio"
	"github.com/n30linux/pda-power/internal/i2c"
	"github.com/n30linux/pda-power/internal/logic"
	"github.com/n30linux/pda-power/internal/mqtt"
	"github.com/n30linux/pda-power/internal/platform"
	"github.com/n30linux/pda-power/internal/rail"
	"github.com/n30linux/pda-power/internal/status"
	"github.com/n30linux/pda-power/internal/supply"
	"github.com/n30linux/pda-power/internal/web"
)

func main() {
	boardName := flag.String("board", "n35", "Board variant (n30, n35)")
	boardConfig := flag.String("board-config", "", "YAML file overriding the board wiring")
	poll := flag.Duration("poll", 100*time.Millisecond, "Charger line polling interval")
	debounce := flag.Duration("debounce", 250*time.Millisecond, "Debounce duration")
	capacityInterval := flag.Duration("capacity-interval", 30*time.Second, "Fuel gauge read interval")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	printState := flag.Bool("print-state", false, "Print current state and exit (attaching switches the GPS rail off)")

	flag.Parse()

	b, err := loadBoard(*boardName, *boardConfig)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	cfg := status.Config{
		Board:              b.Name,
		PollMs:             poll.Milliseconds(),
		DebounceMs:         debounce.Milliseconds(),
		CapacityIntervalMs: capacityInterval.Milliseconds(),
		HeartbeatMs:        heartbeat.Milliseconds(),
		Broker:             *broker,
		HTTPAddr:           *httpAddr,
	}
	if err := run(b, cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func loadBoard(name, path string) (board.Board, error) {
	b, err := board.Lookup(name)
	if err != nil {
		return board.Board{}, err
	}
	if path == "" {
		return b, nil
	}
	return board.Load(b, path)
}

func ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func run(b board.Board, cfg status.Config, printState bool) error {
	io := gpio.NewRealProvider()
	defer io.Close()

	bus, err := i2c.OpenRealBus(b.Battery.Bus)
	if err != nil {
		return fmt.Errorf("init i2c: %w", err)
	}
	defer bus.Close()

	p := platform.New(b, io, bus)
	if err := p.Attach(); err != nil {
		// Devices that attached keep working
		log.Printf("attach: %v", err)
	}
	defer p.Detach()

	if printState {
		fmt.Print(describeState(p))
		return nil
	}

	var publisher mqtt.Publisher = nopPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	gpsCmd := make(chan bool, 4)
	if cfg.Broker != "" {
		rp, err := mqtt.NewRealPublisher(cfg.Broker, mqtt.ClientID())
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer rp.Close()
		publisher, mqttStatus = rp, rp

		if p.HasGPS() {
			err := rp.SubscribeGPS(func(on bool) {
				select {
				case gpsCmd <- on:
				default:
					log.Printf("mqtt: gps command dropped, loop busy")
				}
			})
			if err != nil {
				log.Printf("subscribe gps commands: %v", err)
			}
		}
	}

	tracker := status.NewTracker(time.Now(), cfg)

	gpsChanged := make(chan string, 4)
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, p, func(bool) {
			select {
			case gpsChanged <- "http":
			default:
			}
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: board=%s poll=%dms debounce=%dms capacity=%dms broker=%s heartbeat=%dms",
		cfg.Board, cfg.PollMs, cfg.DebounceMs, cfg.CapacityIntervalMs, cfg.Broker, cfg.HeartbeatMs)

	ticker := time.NewTicker(ms(cfg.PollMs))
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)

	l := &loop{
		dev:        p,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		debounce:   ms(cfg.DebounceMs),
		heartbeat:  ms(cfg.HeartbeatMs),
		capacity:   ms(cfg.CapacityIntervalMs),
		now:        time.Now,
	}
	return l.run(ticker.C, sigCh, gpsCmd, gpsChanged)
}

// devices is the platform surface the control loop drives.
type devices interface {
	HasGPS() bool
	Supplies() []supply.Supply
	Capacity() (uint8, error)
	GPSPower() (bool, error)
	GPSState() rail.State
	SetGPSPower(on bool) error
	Suspend() error
	Resume() error
	Detach() error
}

// loop is the daemon's single control goroutine. All MQTT publishing
// happens here.
type loop struct {
	dev        devices
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	debounce   time.Duration
	heartbeat  time.Duration
	capacity   time.Duration
	now        func() time.Time

	detector     *logic.Detector
	lines        []supply.Supply // supplies reporting online
	lastCapacity time.Time
	gaugeFailing bool
	gpsKnown     bool
	gpsPowered   bool
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGUSR1:
		return "SIGUSR1"
	case syscall.SIGUSR2:
		return "SIGUSR2"
	}
	return "UNKNOWN"
}

func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal, gpsCmd <-chan bool, gpsChanged <-chan string) error {
	startTime := l.now()
	l.lines = onlineSupplies(l.dev.Supplies())
	names := make([]string, len(l.lines))
	for i, s := range l.lines {
		names[i] = s.Name()
	}
	l.detector = logic.NewDetector(names, l.debounce, startTime)

	l.readCapacity(startTime)
	l.observeGPS("")
	l.publishSystem("STARTUP", "", true)

	for {
		select {
		case s := <-sig:
			switch s {
			case syscall.SIGUSR1:
				l.suspend()
			case syscall.SIGUSR2:
				l.resume()
			default:
				log.Printf("received %v, shutting down", s)
				l.shutdown(signalName(s))
				return nil
			}

		case on := <-gpsCmd:
			log.Printf("mqtt: gps power %s requested", onOff(on))
			if err := l.dev.SetGPSPower(on); err != nil {
				log.Printf("set gps power: %v", err)
				continue
			}
			l.observeGPS("mqtt")

		case source := <-gpsChanged:
			l.observeGPS(source)

		case <-tick:
			l.tick(l.now())
		}
	}
}

func (l *loop) tick(t time.Time) {
	if t.Sub(l.lastCapacity) >= l.capacity {
		l.readCapacity(t)
	}

	l.sampleSupplies(t)
	l.refreshMQTT()

	// A board without charger lines is baselined from the start
	if hb := l.detector.CheckHeartbeat(t, l.heartbeat); hb != nil {
		log.Printf("heartbeat: uptime=%v counts=%v", hb.Uptime, hb.Counts)
		l.observeGPS("")
		l.publishSystem("HEARTBEAT", "", false)
	}
}

// sampleSupplies reads every online supply once and publishes the
// debounced changes. A failed read leaves that supply out of the sample.
func (l *loop) sampleSupplies(t time.Time) {
	online := make(map[string]bool, len(l.lines))
	for _, s := range l.lines {
		v, err := s.Property(supply.PropOnline)
		if err != nil {
			log.Printf("%s read error: %v", s.Name(), err)
			continue
		}
		online[s.Name()] = v != 0
	}

	for _, event := range l.detector.Process(t, online) {
		log.Printf("event: %s (%v)", event.Type, event.Lines)
		if err := l.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
		}
	}
	l.tracker.UpdateCharger(l.detector.CurrentState(), l.detector.IsBaselined(), l.detector.Counts())
}

// onlineSupplies returns the supplies that report an online property.
func onlineSupplies(all []supply.Supply) []supply.Supply {
	var out []supply.Supply
	for _, s := range all {
		if slices.Contains(s.Properties(), supply.PropOnline) {
			out = append(out, s)
		}
	}
	return out
}

// readCapacity samples the fuel gauge. Failures are logged once per outage.
func (l *loop) readCapacity(t time.Time) {
	l.lastCapacity = t
	v, err := l.dev.Capacity()
	l.tracker.UpdateCapacity(v, err)
	if err != nil {
		if !l.gaugeFailing {
			log.Printf("battery: %v", err)
		}
		l.gaugeFailing = true
		return
	}
	if l.gaugeFailing {
		log.Printf("battery: gauge recovered, capacity %d%%", v)
	}
	l.gaugeFailing = false
}

// observeGPS refreshes the tracked GPS state and publishes a GPS event when
// the rail changed since the last observation. An empty source never publishes.
func (l *loop) observeGPS(source string) {
	if !l.dev.HasGPS() {
		l.tracker.UpdateGPS(false, "", false, nil)
		return
	}

	state := l.dev.GPSState()
	on, err := l.dev.GPSPower()
	l.tracker.UpdateGPS(true, state.String(), on, err)
	if err != nil {
		if !errors.Is(err, rail.ErrNotAttached) {
			log.Printf("gps: %v", err)
		}
		return
	}

	changed := l.gpsKnown && on != l.gpsPowered
	l.gpsKnown = true
	l.gpsPowered = on
	if !changed || source == "" {
		return
	}
	log.Printf("gps: power %s (%s)", onOff(on), source)
	if err := l.publisher.PublishGPS(mqtt.GPSEvent{Timestamp: l.now(), Power: on, Source: source}); err != nil {
		log.Printf("publish gps event: %v", err)
	}
}

func (l *loop) suspend() {
	log.Printf("suspending")
	// The hooks force the rail off even when they report an error
	if err := l.dev.Suspend(); err != nil {
		log.Printf("suspend: %v", err)
	}
	l.tracker.SetSuspended(true)
	l.observeGPS("suspend")
	l.publishSystem("SUSPEND", "SIGUSR1", false)
}

func (l *loop) resume() {
	log.Printf("resuming")
	if err := l.dev.Resume(); err != nil {
		log.Printf("resume: %v", err)
		return
	}
	l.tracker.SetSuspended(false)
	l.observeGPS("resume")
	l.publishSystem("RESUME", "SIGUSR2", false)
}

func (l *loop) shutdown(reason string) {
	if err := l.dev.Detach(); err != nil {
		log.Printf("detach: %v", err)
	}
	l.observeGPS("")
	l.publishSystem("SHUTDOWN", reason, true)
}

func (l *loop) refreshMQTT() {
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

// publishSystem publishes a lifecycle event carrying a full status snapshot.
func (l *loop) publishSystem(event, reason string, retained bool) {
	l.refreshMQTT()
	snap := l.tracker.Snapshot()
	err := l.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// describeState renders the --print-state output.
func describeState(p *platform.Platform) string {
	out := fmt.Sprintf("board: %s\n", p.Board().Name)
	if p.HasGPS() {
		if on, err := p.GPSPower(); err != nil {
			out += fmt.Sprintf("gps: error: %v\n", err)
		} else {
			// Attach always leaves the rail off
			out += fmt.Sprintf("gps: %s (reset by attach)\n", onOff(on))
		}
	}
	if v, err := p.Capacity(); err != nil {
		out += fmt.Sprintf("battery: error: %v\n", err)
	} else {
		out += fmt.Sprintf("battery: %d%%\n", v)
	}
	if p.HasCharger() {
		if ac, usb, err := p.ChargerOnline(); err != nil {
			out += fmt.Sprintf("charger: error: %v\n", err)
		} else {
			out += fmt.Sprintf("ac: %s, usb: %s\n", onOff(ac), onOff(usb))
		}
	}
	return out
}

// nopPublisher is used when MQTT is disabled.
type nopPublisher struct{}

func (nopPublisher) Publish(logic.Event) error { return nil }

func (nopPublisher) PublishGPS(mqtt.GPSEvent) error { return nil }

func (nopPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }

func (nopPublisher) Close() error { return nil }
