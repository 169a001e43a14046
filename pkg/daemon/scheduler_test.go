package daemon

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

func TestCronParse(t *testing.T) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse("@every 10m")
	if err != nil {
		t.Fatalf("failed to parse cron expression: %v", err)
	}

	now := time.Now()
	next1 := schedule.Next(now)
	next2 := schedule.Next(next1)

	if !next2.After(next1) {
		t.Fatalf("expected next2 to be after next1, got next1=%v next2=%v", next1, next2)
	}
}

func TestSchedulerScheduleStatus(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil)

	if err := s.Schedule("@every 1m"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	st := s.Status()
	if st.Running {
		t.Fatalf("scheduler should not be running")
	}
	if st.NextRun.IsZero() {
		t.Fatalf("next run should be set after scheduling")
	}
	if st.Expr != "@every 1m" {
		t.Fatalf("unexpected expr %q", st.Expr)
	}

	if err := s.Schedule(""); err != nil {
		t.Fatalf("Schedule(\"\") returned error: %v", err)
	}
	if st := s.Status(); !st.NextRun.IsZero() || st.Expr != "" {
		t.Fatalf("empty expression should disable the schedule, got %+v", st)
	}
}

func TestSchedulerInvalidExpression(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil)
	if err := s.Schedule("not a cron"); err == nil {
		t.Fatalf("expected error for invalid expression")
	}
	if !s.Status().NextRun.IsZero() {
		t.Fatalf("invalid expression must not set a schedule")
	}
}

func TestSchedulerSkip(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil)
	if err := s.Skip(); err == nil {
		t.Fatalf("expected error when skipping without a schedule")
	}

	if err := s.Schedule("@every 10m"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	orig := s.Status().NextRun

	s.Start()
	defer s.Stop()

	if err := s.Skip(); err != nil {
		t.Fatalf("Skip returned error: %v", err)
	}
	skipped := s.Status().NextRun
	if !skipped.After(orig) {
		t.Fatalf("expected skip to move schedule forward, got %v <= %v", skipped, orig)
	}
}

func TestSchedulerRunCycle(t *testing.T) {
	taskCh := make(chan struct{}, 4)
	errCh := make(chan error, 4)
	var runs int32

	task := func() error {
		n := atomic.AddInt32(&runs, 1)
		taskCh <- struct{}{}
		if n == 1 {
			return errors.New("first run fails")
		}
		return nil
	}
	onError := func(data any) {
		errCh <- data.(error)
	}

	s := NewScheduler(task, onError)
	s.Start()
	defer s.Stop()

	// Scheduling after Start must wake up the running loop.
	if err := s.Schedule("@every 1s"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-taskCh:
		case <-time.After(5 * time.Second):
			t.Fatalf("task did not run (run %d)", i+1)
		}
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("expected task error")
		}
	case <-time.After(time.Second):
		t.Fatalf("OnError was not called")
	}

	s.Stop()
	deadline := time.Now().Add(2 * time.Second)
	for s.Status().Running {
		if time.Now().After(deadline) {
			t.Fatalf("scheduler still running after Stop")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
