package daemon

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/apportion/pkg/config"
	"github.com/charlie0129/apportion/pkg/types"
)

type NotifyFunc func(data any)

// TaskFunc represents a runnable task.
type TaskFunc func() error

// Scheduler runs Task according to a cron expression. It drives periodic
// drift recalibration of all allocations.
type Scheduler struct {
	OnError NotifyFunc // called on task error
	Task    TaskFunc   // task callback

	mu       sync.Mutex
	expr     string
	schedule cron.Schedule
	nextRun  time.Time
	running  bool

	controlCh chan struct{}
	stopCh    chan struct{}
}

func NewScheduler(task TaskFunc, onError NotifyFunc) *Scheduler {
	if task == nil {
		panic("task function cannot be nil")
	}

	return &Scheduler{
		OnError:   onError,
		Task:      task,
		controlCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.runScheduled()
}

func (s *Scheduler) Stop() {
	select {
	case <-s.stopCh: // already closed
	default:
		close(s.stopCh)
	}
}

// Schedule replaces the current schedule. An empty expression disables it.
func (s *Scheduler) Schedule(cronExpr string) error {
	var sh cron.Schedule
	if cronExpr != "" {
		var err error
		sh, err = config.CronParser.Parse(cronExpr)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.expr = cronExpr
	s.schedule = sh
	if sh != nil {
		s.nextRun = sh.Next(time.Now())
	} else {
		s.nextRun = time.Time{}
	}
	s.mu.Unlock()

	s.wake()
	return nil
}

// Skip skips the next scheduled run.
func (s *Scheduler) Skip() error {
	s.mu.Lock()
	if s.schedule == nil || s.nextRun.IsZero() {
		s.mu.Unlock()
		return fmt.Errorf("no active schedule to skip")
	}
	s.nextRun = s.schedule.Next(s.nextRun)
	s.mu.Unlock()

	s.wake()
	return nil
}

func (s *Scheduler) Status() types.ScheduleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return types.ScheduleStatus{
		Expr:    s.expr,
		NextRun: s.nextRun,
		Running: s.running,
	}
}

func (s *Scheduler) runScheduled() {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		logrus.Debug("scheduler stopped")
	}()

	logrus.Debug("scheduler started")

	for {
		nextRun := s.snapshot()

		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		if !nextRun.IsZero() {
			timer = time.NewTimer(max(time.Until(nextRun), 0))
			timerC = timer.C
		}

		select {
		case <-timerC:
			logrus.Debugf("running scheduled task at %s", nextRun.Format(time.DateTime))
			if err := s.Task(); err != nil {
				s.sendError(fmt.Errorf("task failed: %w", err))
			}
			s.advanceNextRun()
		case <-s.controlCh:
			// schedule changed, recalculate the timer
			stopTimer(timer)
		case <-s.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (s *Scheduler) snapshot() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

func (s *Scheduler) advanceNextRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return
	}
	s.nextRun = s.schedule.Next(time.Now())
}

func (s *Scheduler) sendError(err error) {
	logrus.WithError(err).Error("scheduled task failed")

	if s.OnError == nil {
		return
	}

	go s.OnError(err)
}

func (s *Scheduler) wake() {
	select {
	case s.controlCh <- struct{}{}:
	default:
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
