package breaker

import (
	"errors"
	"testing"
	"time"
)

func testBreaker(cooldown time.Duration) (*Breaker, *time.Time) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := New(Config{FailureThreshold: 3, Cooldown: cooldown, SuccessThreshold: 2})
	b.now = func() time.Time { return clock }
	return b, &clock
}

func TestTripsAfterThreshold(t *testing.T) {
	b, _ := testBreaker(30 * time.Second)

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != Closed {
		t.Fatalf("state after 2 failures = %v, want Closed", b.State())
	}
	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("state after 3 failures = %v, want Open", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow while open = %v, want ErrOpen", err)
	}
}

func TestSuccessClearsFailureStreak(t *testing.T) {
	b, _ := testBreaker(30 * time.Second)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	if b.State() != Closed {
		t.Fatalf("state = %v, want Closed (streak was cleared)", b.State())
	}
}

func TestCooldownTransitionsToHalfOpen(t *testing.T) {
	b, clock := testBreaker(30 * time.Second)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow before cooldown = %v, want ErrOpen", err)
	}

	*clock = clock.Add(31 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow after cooldown = %v, want nil probe", err)
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want HalfOpen", b.State())
	}
}

func TestHalfOpenSuccessesClose(t *testing.T) {
	b, clock := testBreaker(30 * time.Second)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	*clock = clock.Add(time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatal(err)
	}

	b.RecordSuccess()
	if b.State() != HalfOpen {
		t.Fatalf("state after 1 probe success = %v, want HalfOpen", b.State())
	}
	b.RecordSuccess()
	if b.State() != Closed {
		t.Fatalf("state after 2 probe successes = %v, want Closed", b.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, clock := testBreaker(30 * time.Second)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	*clock = clock.Add(time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatal(err)
	}

	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("state after probe failure = %v, want Open", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow after reopen = %v, want ErrOpen", err)
	}
}

func TestReset(t *testing.T) {
	b, _ := testBreaker(30 * time.Second)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	b.Reset()
	if b.State() != Closed {
		t.Fatalf("state after Reset = %v, want Closed", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow after Reset = %v, want nil", err)
	}
}

func TestSnapshotCounters(t *testing.T) {
	b, _ := testBreaker(30 * time.Second)

	b.RecordSuccess()
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}

	m := b.Snapshot()
	if m.State != Open {
		t.Errorf("snapshot state = %v, want Open", m.State)
	}
	if m.TotalSuccesses != 1 || m.TotalFailures != 3 {
		t.Errorf("snapshot counters = %d/%d, want 1/3", m.TotalSuccesses, m.TotalFailures)
	}
	if m.TimesOpened != 1 {
		t.Errorf("TimesOpened = %d, want 1", m.TimesOpened)
	}
}

func TestDefaultsClampBadConfig(t *testing.T) {
	b := New(Config{})
	if b.cfg.FailureThreshold != 3 || b.cfg.SuccessThreshold != 1 || b.cfg.Cooldown != 30*time.Second {
		t.Fatalf("clamped config = %+v", b.cfg)
	}
}

func TestStateString(t *testing.T) {
	if Closed.String() != "closed" || Open.String() != "open" || HalfOpen.String() != "half_open" {
		t.Fatal("State.String mismatch")
	}
}
