package logic

import (
	"maps"
	"time"
)

type line struct {
	name    string
	stable  State
	pending State
	since   time.Time
	settled bool
}

// step feeds one reading into l and reports whether its stable state
// changed. The first settle is the baseline and is not a change.
func (l *line) step(s State, now time.Time, debounce time.Duration) bool {
	if l.settled && s == l.stable {
		l.pending = ""
		return false
	}
	if l.pending != s {
		l.pending = s
		l.since = now
	}
	if now.Sub(l.since) < debounce {
		return false
	}
	changed := l.settled
	l.stable = s
	l.pending = ""
	l.settled = true
	return changed
}

// Detector debounces a fixed set of supplies.
// It is not safe for concurrent use.
type Detector struct {
	debounce      time.Duration
	lines         []*line
	ready         bool
	start         time.Time
	lastHeartbeat time.Time
	counts        Counts
}

// NewDetector tracks the named supplies. Events for simultaneous changes
// come out in the order given here.
func NewDetector(supplies []string, debounce time.Duration, start time.Time) *Detector {
	d := &Detector{
		debounce:      debounce,
		start:         start,
		lastHeartbeat: start,
		counts:        make(Counts),
	}
	for _, name := range supplies {
		d.lines = append(d.lines, &line{name: name})
		d.counts[EventTypeFor(name, StateOnline)] = 0
		d.counts[EventTypeFor(name, StateOffline)] = 0
	}
	d.ready = len(d.lines) == 0
	return d
}

// Process feeds one sample taken at now. online maps supply name to its
// reading; a tracked supply missing from the map (a failed read) keeps its
// debounce timer untouched. No events are returned until every supply has
// settled once.
func (d *Detector) Process(now time.Time, online map[string]bool) []Event {
	var changed []*line
	for _, l := range d.lines {
		v, ok := online[l.name]
		if !ok {
			continue
		}
		if l.step(StateOf(v), now, d.debounce) {
			changed = append(changed, l)
		}
	}

	if !d.ready {
		d.ready = d.allSettled()
		return nil
	}
	if len(changed) == 0 {
		return nil
	}

	lines := d.CurrentState()
	events := make([]Event, 0, len(changed))
	for _, l := range changed {
		typ := EventTypeFor(l.name, l.stable)
		d.counts[typ]++
		events = append(events, Event{
			Timestamp: now,
			Type:      typ,
			Supply:    l.name,
			State:     l.stable,
			Lines:     lines,
		})
	}
	return events
}

func (d *Detector) allSettled() bool {
	for _, l := range d.lines {
		if !l.settled {
			return false
		}
	}
	return true
}

// Supplies returns the tracked supply names in order.
func (d *Detector) Supplies() []string {
	names := make([]string, len(d.lines))
	for i, l := range d.lines {
		names[i] = l.name
	}
	return names
}

// IsBaselined reports whether every supply has settled. A detector with
// no supplies is baselined from the start.
func (d *Detector) IsBaselined() bool {
	return d.ready
}

// CurrentState returns the stable state of every tracked supply.
func (d *Detector) CurrentState() Lines {
	out := make(Lines, len(d.lines))
	for _, l := range d.lines {
		out[l.name] = l.stable
	}
	return out
}

// Counts returns a copy of the event counts.
func (d *Detector) Counts() Counts {
	return maps.Clone(d.counts)
}

// CheckHeartbeat returns a heartbeat when interval has elapsed since the
// last one (or startup). It returns nil before baseline and when interval
// is not positive.
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *Heartbeat {
	if interval <= 0 || !d.ready {
		return nil
	}
	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}
	d.lastHeartbeat = now
	return &Heartbeat{
		Timestamp: now,
		Uptime:    now.Sub(d.start),
		Counts:    d.Counts(),
	}
}
