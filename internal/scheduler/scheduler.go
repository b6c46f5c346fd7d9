// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

// Package scheduler runs the worker's periodic jobs.
//
// The scheduler is single-threaded and cooperative: tasks run one at a time
// to completion on the goroutine that called Run. A priority queue of
// next-due times decides what runs next; the loop never sleeps longer than
// PollInterval so that clock jumps are noticed. Every task runs once at
// start (when RunOnStart is set) in registration order before falling onto
// its schedule.
//
// A task returning an error, or panicking, is logged and counted; its next
// run is scheduled as usual.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/logging"
	"github.com/tomtom215/reelcast/internal/metrics"
)

// TaskFunc is the body of a scheduled task.
type TaskFunc func(ctx context.Context) error

// ErrNoTasks is returned by Run when nothing was registered.
var ErrNoTasks = errors.New("scheduler: no tasks registered")

// Config holds scheduler configuration.
type Config struct {
	// PollInterval caps how long the loop sleeps between checks (default: 1 minute).
	PollInterval time.Duration

	// RunOnStart runs every task once before the first scheduled run.
	RunOnStart bool
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Minute,
		RunOnStart:   true,
	}
}

// TaskStatus is a snapshot of one task's run history.
type TaskStatus struct {
	Name        string        `json:"name"`
	Schedule    string        `json:"schedule"`
	Runs        int64         `json:"runs"`
	Failures    int64         `json:"failures"`
	LastStarted time.Time     `json:"last_started,omitempty"`
	LastElapsed time.Duration `json:"last_elapsed"`
	LastError   string        `json:"last_error,omitempty"`
	NextRun     time.Time     `json:"next_run,omitempty"`
}

type task struct {
	name     string
	schedule Schedule
	fn       TaskFunc
	seq      int
	status   TaskStatus
}

// Scheduler owns a set of tasks and the loop that runs them.
type Scheduler struct {
	config Config
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	tasks   []*task
	running bool
}

// New creates a scheduler.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg Config, logger zerolog.Logger) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	return &Scheduler{
		config: cfg,
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
	}
}

// Register adds a task. Tasks cannot be added once Run has started.
func (s *Scheduler) Register(name string, schedule Schedule, fn TaskFunc) error {
	if name == "" || schedule == nil || fn == nil {
		return fmt.Errorf("scheduler: task needs a name, schedule and function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler: cannot register %q while running", name)
	}
	for _, t := range s.tasks {
		if t.name == name {
			return fmt.Errorf("scheduler: task %q already registered", name)
		}
	}

	t := &task{name: name, schedule: schedule, fn: fn, seq: len(s.tasks)}
	t.status.Name = name
	t.status.Schedule = scheduleString(schedule)
	s.tasks = append(s.tasks, t)
	return nil
}

// RegisterCron is Register with a cron expression evaluated in loc.
func (s *Scheduler) RegisterCron(name, expr string, loc *time.Location, fn TaskFunc) error {
	c, err := ParseCronIn(expr, loc)
	if err != nil {
		return fmt.Errorf("scheduler: task %q: %w", name, err)
	}
	return s.Register(name, c, fn)
}

// Run executes tasks until ctx is cancelled. It returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return ErrNoTasks
	}
	s.running = true
	tasks := append([]*task(nil), s.tasks...)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().
		Int("tasks", len(tasks)).
		Dur("poll_interval", s.config.PollInterval).
		Bool("run_on_start", s.config.RunOnStart).
		Msg("Scheduler started")

	if s.config.RunOnStart {
		for _, t := range tasks {
			if ctx.Err() != nil {
				return nil
			}
			s.runTask(ctx, t)
		}
	}

	queue := make(dueQueue, 0, len(tasks))
	for _, t := range tasks {
		s.enqueue(&queue, t)
	}

	for {
		next := queue.peek()
		if next == nil {
			// Every schedule is exhausted.
			<-ctx.Done()
			return nil
		}

		wait := next.due.Sub(s.now())
		if wait > s.config.PollInterval {
			wait = s.config.PollInterval
		}
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				s.logger.Info().Msg("Scheduler stopped")
				return nil
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			s.logger.Info().Msg("Scheduler stopped")
			return nil
		}

		now := s.now()
		for queue.Len() > 0 && !queue.peek().due.After(now) {
			if ctx.Err() != nil {
				return nil
			}
			e := queue.pop()
			s.runTask(ctx, e.task)
			s.enqueue(&queue, e.task)
		}
	}
}

// enqueue schedules t from the current time; an exhausted schedule drops t.
func (s *Scheduler) enqueue(q *dueQueue, t *task) {
	due := t.schedule.Next(s.now())

	s.mu.Lock()
	t.status.NextRun = due
	s.mu.Unlock()

	if due.IsZero() {
		s.logger.Warn().Str("task", t.name).Msg("Schedule has no future runs, task retired")
		return
	}
	q.schedule(t, due)
}

// runTask executes one task in isolation from the loop.
func (s *Scheduler) runTask(ctx context.Context, t *task) {
	ctx = logging.ContextWithNewRunID(ctx)
	logger := logging.Attach(ctx, s.logger).With().Str("task", t.name).Logger()
	ctx = logging.ContextWithLogger(ctx, logger)

	start := s.now()
	logger.Info().Msg("Task started")

	err := s.invoke(ctx, t)
	elapsed := s.now().Sub(start)

	result := "success"
	var panicErr *panicError
	switch {
	case errors.As(err, &panicErr):
		result = "panic"
		logger.Error().Err(err).Str("stack", panicErr.stack).Dur("elapsed", elapsed).Msg("Task panicked")
	case err != nil:
		result = "error"
		logger.Error().Err(err).Dur("elapsed", elapsed).Msg("Task failed")
	default:
		logger.Info().Dur("elapsed", elapsed).Msg("Task finished")
	}
	metrics.RecordTaskRun(t.name, result, elapsed)

	s.mu.Lock()
	t.status.Runs++
	t.status.LastStarted = start
	t.status.LastElapsed = elapsed
	t.status.LastError = ""
	if err != nil {
		t.status.Failures++
		t.status.LastError = err.Error()
	}
	s.mu.Unlock()
}

type panicError struct {
	value any
	stack string
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

func (s *Scheduler) invoke(ctx context.Context, t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: string(debug.Stack())}
		}
	}()
	return t.fn(ctx)
}

// RunOnce executes every task once in registration order and returns the
// joined task errors. It backs the worker's one-shot mode and must not be
// called while Run is active.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	tasks := append([]*task(nil), s.tasks...)
	s.mu.Unlock()

	var errs []error
	for _, t := range tasks {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		s.runTask(ctx, t)

		s.mu.Lock()
		if t.status.LastError != "" {
			errs = append(errs, fmt.Errorf("%s: %s", t.name, t.status.LastError))
		}
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Status returns a snapshot of every task in registration order.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskStatus, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.status
	}
	return out
}

func scheduleString(sched Schedule) string {
	switch v := sched.(type) {
	case fmt.Stringer:
		return v.String()
	case Every:
		return "@every " + time.Duration(v).String()
	default:
		return fmt.Sprintf("%T", sched)
	}
}
