// Package web provides an HTTP status and control server for the pda-power daemon.
package web

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/n30linux/pda-power/internal/status"
	"github.com/n30linux/pda-power/internal/supply"
)

// Devices is the device access the handlers need.
type Devices interface {
	HasGPS() bool
	GPSPower() (bool, error)
	SetGPSPower(on bool) error
	Supplies() []supply.Supply
}

// GPSNotifier is called after a successful GPS power write.
type GPSNotifier func(on bool)

// maxBody bounds attribute writes; a power flag is a few bytes.
const maxBody = 64

// Server serves the status page and the device attributes over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	devices    Devices
	notify     GPSNotifier
}

// New creates a Server that reads state from the given tracker and
// serves device attributes from devices. notify may be nil.
func New(addr string, tracker *status.Tracker, devices Devices, notify GPSNotifier) *Server {
	s := &Server{tracker: tracker, devices: devices, notify: notify}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/gps_power", s.handleGPSPower)
	mux.HandleFunc("/battery/capacity", s.handleCapacity)
	mux.HandleFunc("/battery/uevent", s.handleBatteryUevent)
	mux.HandleFunc("/power_supply/", s.handleSupplyUevent)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, body)
}

func (s *Server) handleGPSPower(w http.ResponseWriter, r *http.Request) {
	if !s.devices.HasGPS() {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		on, err := s.devices.GPSPower()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeText(w, supply.FormatPowerFlag(on))

	case http.MethodPut, http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(body) > maxBody {
			http.Error(w, "value too long", http.StatusRequestEntityTooLarge)
			return
		}
		on, err := supply.ParsePowerFlag(string(body))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.devices.SetGPSPower(on); err != nil {
			log.Printf("web: set gps power: %v", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if s.notify != nil {
			s.notify(on)
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, HEAD, PUT, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) findSupply(name string) supply.Supply {
	for _, sup := range s.devices.Supplies() {
		if sup.Name() == name {
			return sup
		}
	}
	return nil
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	bat := s.findSupply("battery")
	if bat == nil {
		http.NotFound(w, r)
		return
	}
	v, err := bat.Property(supply.PropCapacity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeText(w, fmt.Sprintf("%d\n", v))
}

func (s *Server) handleBatteryUevent(w http.ResponseWriter, r *http.Request) {
	bat := s.findSupply("battery")
	if bat == nil {
		http.NotFound(w, r)
		return
	}
	writeText(w, supply.Uevent(bat))
}

// handleSupplyUevent serves /power_supply/<name>/uevent for every supply.
func (s *Server) handleSupplyUevent(w http.ResponseWriter, r *http.Request) {
	name, attr, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/power_supply/"), "/")
	if !ok || attr != "uevent" {
		http.NotFound(w, r)
		return
	}
	sup := s.findSupply(name)
	if sup == nil {
		http.NotFound(w, r)
		return
	}
	writeText(w, supply.Uevent(sup))
}

