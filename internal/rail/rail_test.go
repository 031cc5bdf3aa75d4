package rail

import (
	"errors"
	"testing"

	"github.com/n30linux/pda-power/internal/gpio"
)

var (
	gpb4  = gpio.Pin{Chip: "gpiochip1", Line: 4}
	gpg11 = gpio.Pin{Chip: "gpiochip6", Line: 11}
)

func newTestController(activeLow bool) (*Controller, *gpio.FakeProvider) {
	c := New(Config{Primary: gpb4, Secondary: gpg11, ActiveLow: activeLow, Label: "gps"})
	return c, gpio.NewFakeProvider()
}

func mustPower(t *testing.T, c *Controller) bool {
	t.Helper()
	on, err := c.Power()
	if err != nil {
		t.Fatalf("Power: unexpected error: %v", err)
	}
	return on
}

func TestAttachDrivesOff(t *testing.T) {
	for _, activeLow := range []bool{false, true} {
		c, io := newTestController(activeLow)

		if err := c.Attach(io); err != nil {
			t.Fatalf("activeLow=%v: attach: %v", activeLow, err)
		}
		if c.State() != Active {
			t.Errorf("activeLow=%v: state: got %s, want ACTIVE", activeLow, c.State())
		}
		if !io.IsOutput(gpb4) || !io.IsOutput(gpg11) {
			t.Errorf("activeLow=%v: both pins should be outputs", activeLow)
		}
		// Off is high for active-low lines, low otherwise
		if io.Peek(gpb4) != activeLow || io.Peek(gpg11) != activeLow {
			t.Errorf("activeLow=%v: expected both lines at %v", activeLow, activeLow)
		}
		if mustPower(t, c) {
			t.Errorf("activeLow=%v: expected rail off after attach", activeLow)
		}
	}
}

func TestAttachTwice(t *testing.T) {
	c, io := newTestController(true)
	c.Attach(io)

	if err := c.Attach(io); !errors.Is(err, ErrAlreadyAttached) {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}
}

func TestAttachPrimaryBusy(t *testing.T) {
	c, io := newTestController(true)
	io.Hold(gpb4, "elsewhere")

	err := c.Attach(io)
	var acq *AcquireError
	if !errors.As(err, &acq) {
		t.Fatalf("expected AcquireError, got %v", err)
	}
	if acq.Pin != gpb4 {
		t.Errorf("failing pin: got %s, want %s", acq.Pin, gpb4)
	}
	if !errors.Is(err, gpio.ErrBusy) {
		t.Errorf("expected ErrBusy in chain, got %v", err)
	}
	if io.Owner(gpg11) != "" {
		t.Error("secondary pin should not be requested")
	}
	if c.State() != Unattached {
		t.Errorf("state: got %s, want UNATTACHED", c.State())
	}
}

func TestAttachSecondaryBusyReleasesPrimary(t *testing.T) {
	c, io := newTestController(true)
	io.Hold(gpg11, "elsewhere")

	err := c.Attach(io)
	var acq *AcquireError
	if !errors.As(err, &acq) {
		t.Fatalf("expected AcquireError, got %v", err)
	}
	if acq.Pin != gpg11 {
		t.Errorf("failing pin: got %s, want %s", acq.Pin, gpg11)
	}

	// The primary must be free again
	if err := io.Request(gpb4, "other"); err != nil {
		t.Errorf("primary leaked after failed attach: %v", err)
	}
	if c.State() != Unattached {
		t.Errorf("state: got %s, want UNATTACHED", c.State())
	}
}

func TestAttachRollbackReportsReleaseFailure(t *testing.T) {
	c, io := newTestController(true)
	io.Hold(gpg11, "elsewhere")
	releaseErr := errors.New("release failed")
	io.ReleaseError = releaseErr

	err := c.Attach(io)
	var acq *AcquireError
	if !errors.As(err, &acq) || acq.Pin != gpg11 {
		t.Fatalf("expected AcquireError for %s, got %v", gpg11, err)
	}
	if !errors.Is(err, gpio.ErrBusy) {
		t.Errorf("expected ErrBusy in chain, got %v", err)
	}
	if !errors.Is(err, releaseErr) {
		t.Errorf("expected release failure in chain, got %v", err)
	}
}

func TestAttachConfigureFailureReleasesBoth(t *testing.T) {
	c, io := newTestController(true)
	io.SetLevelError = errors.New("simulated")

	if err := c.Attach(io); err == nil {
		t.Fatal("expected error")
	}
	if io.Owner(gpb4) != "" || io.Owner(gpg11) != "" {
		t.Error("expected both pins released after configure failure")
	}
}

func TestSetPowerDrivesBothLines(t *testing.T) {
	tests := []struct {
		name      string
		activeLow bool
		on        bool
		wantLevel bool
	}{
		{"active-low on", true, true, false},
		{"active-low off", true, false, true},
		{"active-high on", false, true, true},
		{"active-high off", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, io := newTestController(tt.activeLow)
			c.Attach(io)

			if err := c.SetPower(tt.on); err != nil {
				t.Fatalf("SetPower: %v", err)
			}
			if io.Peek(gpb4) != tt.wantLevel || io.Peek(gpg11) != tt.wantLevel {
				t.Errorf("lines: got (%v, %v), want both %v", io.Peek(gpb4), io.Peek(gpg11), tt.wantLevel)
			}
			if got := mustPower(t, c); got != tt.on {
				t.Errorf("Power: got %v, want %v", got, tt.on)
			}
		})
	}
}

func TestPowerRequiresBothLines(t *testing.T) {
	c, io := newTestController(true)
	c.Attach(io)
	c.SetPower(true)

	// Primary pulled back to off (high), secondary still on
	io.Force(gpb4, true)
	if mustPower(t, c) {
		t.Error("expected off when primary disagrees")
	}

	io.Force(gpb4, false)
	io.Force(gpg11, true)
	if mustPower(t, c) {
		t.Error("expected off when secondary disagrees")
	}

	io.Force(gpg11, false)
	if !mustPower(t, c) {
		t.Error("expected on when both agree")
	}
}

func TestPowerReadError(t *testing.T) {
	c, io := newTestController(true)
	c.Attach(io)
	io.LevelError = errors.New("simulated")

	if _, err := c.Power(); err == nil {
		t.Error("expected read error")
	}
}

func TestNotAttached(t *testing.T) {
	c, _ := newTestController(true)

	if err := c.SetPower(true); !errors.Is(err, ErrNotAttached) {
		t.Errorf("SetPower: expected ErrNotAttached, got %v", err)
	}
	if _, err := c.Power(); !errors.Is(err, ErrNotAttached) {
		t.Errorf("Power: expected ErrNotAttached, got %v", err)
	}
	if err := c.Suspend(); !errors.Is(err, ErrNotAttached) {
		t.Errorf("Suspend: expected ErrNotAttached, got %v", err)
	}
	if err := c.Resume(); !errors.Is(err, ErrNotAttached) {
		t.Errorf("Resume: expected ErrNotAttached, got %v", err)
	}
}

func TestSuspendResumeRestoresLevel(t *testing.T) {
	for _, before := range []bool{true, false} {
		c, io := newTestController(true)
		c.Attach(io)
		c.SetPower(before)

		if err := c.Suspend(); err != nil {
			t.Fatalf("before=%v: suspend: %v", before, err)
		}
		if c.State() != Suspended {
			t.Errorf("before=%v: state: got %s, want SUSPENDED", before, c.State())
		}
		if mustPower(t, c) {
			t.Errorf("before=%v: expected off while suspended", before)
		}

		if err := c.Resume(); err != nil {
			t.Fatalf("before=%v: resume: %v", before, err)
		}
		if got := mustPower(t, c); got != before {
			t.Errorf("before=%v: after resume got %v", before, got)
		}
		if err := c.Detach(); err != nil {
			t.Fatalf("before=%v: detach: %v", before, err)
		}
	}
}

func TestSuspendIsIdempotent(t *testing.T) {
	c, io := newTestController(true)
	c.Attach(io)
	c.SetPower(true)

	c.Suspend()
	// Second suspend sees the rail off but must keep the first snapshot
	if err := c.Suspend(); err != nil {
		t.Fatalf("second suspend: %v", err)
	}

	c.Resume()
	if !mustPower(t, c) {
		t.Error("expected first snapshot (on) restored")
	}
}

func TestSuspendForcesOffWhenUnreadable(t *testing.T) {
	c, io := newTestController(true)
	c.Attach(io)
	c.SetPower(true)
	io.LevelError = errors.New("simulated")

	if err := c.Suspend(); err == nil {
		t.Fatal("expected read error from suspend")
	}
	if c.State() != Suspended {
		t.Errorf("state: got %s, want SUSPENDED", c.State())
	}
	// Active-low off is high
	if !io.Peek(gpb4) || !io.Peek(gpg11) {
		t.Error("rail must be driven off even when the read fails")
	}

	// The unreadable level is recorded as off
	io.LevelError = nil
	if err := c.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if mustPower(t, c) {
		t.Error("expected off after resume from an unreadable suspend")
	}
}

func TestResumeFailureKeepsSnapshot(t *testing.T) {
	c, io := newTestController(true)
	c.Attach(io)
	c.SetPower(true)
	c.Suspend()

	io.SetLevelError = errors.New("simulated")
	if err := c.Resume(); err == nil {
		t.Fatal("expected drive error from resume")
	}
	if c.State() != Suspended {
		t.Errorf("state after failed resume: got %s, want SUSPENDED", c.State())
	}

	io.SetLevelError = nil
	if err := c.Resume(); err != nil {
		t.Fatalf("retry resume: %v", err)
	}
	if c.State() != Active {
		t.Errorf("state: got %s, want ACTIVE", c.State())
	}
	if !mustPower(t, c) {
		t.Error("expected snapshot (on) restored by the retry")
	}
}

func TestResumeWithoutSuspendDrivesOff(t *testing.T) {
	c, io := newTestController(true)
	c.Attach(io)
	c.SetPower(true)

	if err := c.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if mustPower(t, c) {
		t.Error("expected off after resume without suspend")
	}
}

func TestSetPowerWhileSuspended(t *testing.T) {
	c, io := newTestController(true)
	c.Attach(io)

	c.Suspend()
	if err := c.SetPower(true); err != nil {
		t.Fatalf("SetPower while suspended: %v", err)
	}
	if mustPower(t, c) {
		t.Error("rail must stay off while suspended")
	}

	c.Resume()
	if !mustPower(t, c) {
		t.Error("expected deferred request applied on resume")
	}
}

func TestDetachIsIdempotent(t *testing.T) {
	c, io := newTestController(true)
	c.Attach(io)
	c.SetPower(true)

	if err := c.Detach(); err != nil {
		t.Fatalf("first detach: %v", err)
	}
	if err := c.Detach(); err != nil {
		t.Fatalf("second detach: %v", err)
	}

	if c.State() != Unattached {
		t.Errorf("state: got %s, want UNATTACHED", c.State())
	}
	if io.Owner(gpb4) != "" || io.Owner(gpg11) != "" {
		t.Error("expected both pins released")
	}
	if io.Releases != 2 {
		t.Errorf("releases: got %d, want 2", io.Releases)
	}
	// Rail was forced off (high) before release
	if !io.Peek(gpb4) || !io.Peek(gpg11) {
		t.Error("expected rail driven off before release")
	}
}

func TestDetachFromSuspended(t *testing.T) {
	c, io := newTestController(true)
	c.Attach(io)
	c.SetPower(true)
	c.Suspend()

	if err := c.Detach(); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if c.State() != Unattached {
		t.Errorf("state: got %s, want UNATTACHED", c.State())
	}

	// Reattach starts from off with no stale snapshot
	if err := c.Attach(io); err != nil {
		t.Fatalf("reattach: %v", err)
	}
	c.Resume()
	if mustPower(t, c) {
		t.Error("expected off: snapshot must not survive detach")
	}
}

func TestLifecycleScenario(t *testing.T) {
	c, io := newTestController(true)

	if err := c.Attach(io); err != nil {
		t.Fatalf("attach: %v", err)
	}
	c.SetPower(true)
	if !mustPower(t, c) {
		t.Fatal("expected on")
	}
	c.Suspend()
	if mustPower(t, c) {
		t.Fatal("expected off while suspended")
	}
	c.Resume()
	if !mustPower(t, c) {
		t.Fatal("expected on after resume")
	}
	c.Detach()
	if _, err := c.Power(); !errors.Is(err, ErrNotAttached) {
		t.Errorf("expected ErrNotAttached after detach, got %v", err)
	}
}

func TestStateString(t *testing.T) {
	if Unattached.String() != "UNATTACHED" || Active.String() != "ACTIVE" || Suspended.String() != "SUSPENDED" {
		t.Error("unexpected state names")
	}
	if State(9).String() != "State(9)" {
		t.Errorf("unknown state: got %q", State(9).String())
	}
}
