package memory

import (
	"context"
	"testing"
	"time"
)

func TestJanitorStartStop(t *testing.T) {
	j := NewJanitor(NewManager(), 10*time.Millisecond, nil)

	j.Start(context.Background())
	if !j.IsRunning() {
		t.Fatalf("janitor should be running after Start")
	}
	j.Start(context.Background())

	j.Stop()
	if j.IsRunning() {
		t.Fatalf("janitor should stop")
	}
	j.Stop()
}

func TestJanitorSweepsPeriodically(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(WithClock(clock.Now), WithIdleThreshold(time.Minute))
	_ = m.CommitExchange("sid", "q", "a")
	clock.Advance(2 * time.Minute)

	j := NewJanitor(m, 5*time.Millisecond, nil)
	j.Start(context.Background())
	defer j.Stop()

	deadline := time.After(time.Second)
	for m.Sessions() != 0 {
		select {
		case <-deadline:
			t.Fatalf("janitor did not evict the idle session")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestJanitorStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	j := NewJanitor(NewManager(), 5*time.Millisecond, nil)
	j.Start(ctx)
	cancel()

	deadline := time.After(time.Second)
	for j.IsRunning() {
		select {
		case <-deadline:
			t.Fatalf("janitor ignored context cancellation")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
