package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"AnalystScanner/internal/ports"
)

// CronScheduler triggers the job on a standard five-field cron expression.
type CronScheduler struct {
	spec     string
	location *time.Location
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	stop    chan struct{}
	watcher chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler validates spec up front; times are evaluated in loc (UTC when nil).
func NewCronScheduler(spec string, loc *time.Location, logger *slog.Logger) (*CronScheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{spec: spec, location: loc, logger: logger}, nil
}

// Start registers the job; it also stops when ctx is cancelled.
func (s *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cronLogger{logger: s.logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: s.logger})),
	)
	if _, err := c.AddFunc(s.spec, func() { job(time.Now().In(s.location)) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	c.Start()

	stop := make(chan struct{})
	watcher := make(chan struct{})
	s.cron, s.stop, s.watcher = c, stop, watcher

	go func() {
		defer close(watcher)
		select {
		case <-ctx.Done():
			s.mu.Lock()
			owned := s.cron == c
			if owned {
				s.cron, s.stop, s.watcher = nil, nil, nil
			}
			s.mu.Unlock()
			if owned {
				c.Stop()
			}
		case <-stop:
		}
	}()

	return nil
}

// Stop prevents further runs and waits for a running job to return.
func (s *CronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, stop := s.cron, s.stop
	s.cron, s.stop, s.watcher = nil, nil, nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	close(stop)

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports the next activation after t.
func (s *CronScheduler) Next(t time.Time) time.Time {
	schedule, err := cron.ParseStandard(s.spec)
	if err != nil {
		return time.Time{}
	}
	return schedule.Next(t.In(s.location))
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	if l.logger != nil {
		l.logger.Debug("cron: "+msg, keysAndValues...)
	}
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	if l.logger != nil {
		l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
	}
}
