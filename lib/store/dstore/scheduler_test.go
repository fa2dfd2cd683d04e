package dstore

import (
	"testing"
	"time"
)

func TestManualSchedulerOrder(t *testing.T) {
	s := NewManualScheduler()
	var order []string

	s.Schedule(30*time.Millisecond, func() { order = append(order, "c") })
	s.Schedule(10*time.Millisecond, func() { order = append(order, "a") })
	s.Schedule(10*time.Millisecond, func() { order = append(order, "b") })
	late := s.Schedule(time.Second, func() { order = append(order, "late") })

	if s.Pending() != 4 {
		t.Fatalf("expected 4 pending tasks, got %d", s.Pending())
	}

	s.Advance(30 * time.Millisecond)
	if got := len(order); got != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("expected a b c, got %v", order)
	}
	if s.Now() != 30*time.Millisecond {
		t.Errorf("expected clock at 30ms, got %s", s.Now())
	}

	if !late.Cancel() {
		t.Errorf("expected Cancel to remove the late task")
	}
	s.Advance(time.Hour)
	if len(order) != 3 {
		t.Errorf("cancelled task ran: %v", order)
	}
}

func TestManualSchedulerNested(t *testing.T) {
	s := NewManualScheduler()
	var at []time.Duration

	s.Schedule(10*time.Millisecond, func() {
		at = append(at, s.Now())
		s.Schedule(10*time.Millisecond, func() {
			at = append(at, s.Now())
		})
	})

	s.Advance(25 * time.Millisecond)
	if len(at) != 2 || at[0] != 10*time.Millisecond || at[1] != 20*time.Millisecond {
		t.Errorf("expected runs at 10ms and 20ms, got %v", at)
	}
	if s.Pending() != 0 {
		t.Errorf("expected no pending tasks, got %d", s.Pending())
	}
}
