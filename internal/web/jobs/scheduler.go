// Package jobs runs recurring background work such as publishing weekly
// studies when their scheduled time arrives.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// JobFunc is the body of a scheduled job
type JobFunc func(ctx context.Context) error

// Schedule defines a recurring job
type Schedule struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run; zero means the interval
	Timeout time.Duration
	// RunOnStart runs the job as soon as the scheduler starts
	RunOnStart bool
	Run        JobFunc

	Enabled bool
	LastRun time.Time
	NextRun time.Time
	LastErr error
	Runs    int
}

// ScheduleEvery is a helper to create a schedule with a simple interval
func ScheduleEvery(name string, interval time.Duration, run JobFunc) *Schedule {
	return &Schedule{Name: name, Interval: interval, Run: run}
}

// CronScheduler runs schedules on a fixed tick. A job never overlaps with
// itself; a run that is still going when the next one is due is skipped.
type CronScheduler struct {
	schedules map[string]*Schedule
	running   map[string]bool
	mu        sync.Mutex

	tick   time.Duration
	now    func() time.Time
	logger *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCronScheduler creates a scheduler checking schedules every second
func NewCronScheduler(logger *zap.Logger) *CronScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronScheduler{
		schedules: make(map[string]*Schedule),
		running:   make(map[string]bool),
		tick:      time.Second,
		now:       time.Now,
		logger:    logger.Named("jobs"),
	}
}

// AddSchedule registers a schedule
func (s *CronScheduler) AddSchedule(schedule *Schedule) error {
	if schedule.Name == "" {
		return errors.New("schedule name is required")
	}
	if schedule.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if schedule.Run == nil {
		return errors.New("job function is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.schedules[schedule.Name]; exists {
		return fmt.Errorf("schedule already exists: %s", schedule.Name)
	}

	now := s.now()
	schedule.Enabled = true
	schedule.NextRun = now.Add(schedule.Interval)
	if schedule.RunOnStart {
		schedule.NextRun = now
	}
	s.schedules[schedule.Name] = schedule
	s.logger.Info("schedule added", zap.String("job", schedule.Name), zap.Duration("interval", schedule.Interval))
	return nil
}

// SetEnabled pauses or resumes a schedule
func (s *CronScheduler) SetEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, ok := s.schedules[name]
	if !ok {
		return fmt.Errorf("schedule not found: %s", name)
	}
	schedule.Enabled = enabled
	return nil
}

// ScheduleStatus is a snapshot of one schedule
type ScheduleStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Enabled   bool          `json:"enabled"`
	Running   bool          `json:"running"`
	Runs      int           `json:"runs"`
	LastRun   time.Time     `json:"last_run"`
	NextRun   time.Time     `json:"next_run"`
	LastError string        `json:"last_error,omitempty"`
}

// ListSchedules returns every schedule ordered by name
func (s *CronScheduler) ListSchedules() []ScheduleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ScheduleStatus, 0, len(s.schedules))
	for _, sc := range s.schedules {
		st := ScheduleStatus{
			Name:     sc.Name,
			Interval: sc.Interval,
			Enabled:  sc.Enabled,
			Running:  s.running[sc.Name],
			Runs:     sc.Runs,
			LastRun:  sc.LastRun,
			NextRun:  sc.NextRun,
		}
		if sc.LastErr != nil {
			st.LastError = sc.LastErr.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start runs the scheduler loop until ctx is cancelled or Stop is called
func (s *CronScheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Info("scheduler started")
}

// Stop cancels the loop and waits for running jobs, up to ctx's deadline
func (s *CronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs to finish: %w", ctx.Err())
	}
}

func (s *CronScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.checkSchedules(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkSchedules(ctx)
		}
	}
}

// checkSchedules starts every due schedule that is not already running
func (s *CronScheduler) checkSchedules(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, schedule := range s.schedules {
		if !schedule.Enabled || s.running[schedule.Name] || now.Before(schedule.NextRun) {
			continue
		}
		schedule.NextRun = now.Add(schedule.Interval)
		s.running[schedule.Name] = true
		s.wg.Add(1)
		go s.execute(ctx, schedule)
	}
}

// RunNow runs a schedule immediately and waits for it
func (s *CronScheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	schedule, ok := s.schedules[name]
	if ok && s.running[name] {
		s.mu.Unlock()
		return fmt.Errorf("schedule %s is already running", name)
	}
	if ok {
		s.running[name] = true
		s.wg.Add(1)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("schedule not found: %s", name)
	}
	return s.execute(ctx, schedule)
}

func (s *CronScheduler) execute(ctx context.Context, schedule *Schedule) error {
	defer s.wg.Done()

	timeout := schedule.Timeout
	if timeout <= 0 {
		timeout = schedule.Interval
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := s.now()
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = schedule.Run(runCtx) })
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}
	elapsed := time.Since(start)

	s.mu.Lock()
	s.running[schedule.Name] = false
	schedule.LastRun = start
	schedule.LastErr = err
	schedule.Runs++
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed", zap.String("job", schedule.Name), zap.Duration("duration", elapsed), zap.Error(err))
		return err
	}
	s.logger.Debug("job finished", zap.String("job", schedule.Name), zap.Duration("duration", elapsed))
	return nil
}
