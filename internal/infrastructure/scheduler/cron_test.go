package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestNewCronSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()

	if _, err := NewCronScheduler("every hour", time.UTC, nil); err == nil {
		t.Fatalf("expected error for invalid expression")
	}
}

func TestCronSchedulerNext(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	s, err := NewCronScheduler("30 9 * * 1-5", loc, nil)
	if err != nil {
		t.Fatalf("NewCronScheduler error: %v", err)
	}

	// Saturday morning rolls over to Monday 09:30 local time.
	from := time.Date(2023, time.July, 22, 8, 0, 0, 0, loc)
	want := time.Date(2023, time.July, 24, 9, 30, 0, 0, loc)
	if got := s.Next(from); !got.Equal(want) {
		t.Fatalf("Next = %s, want %s", got, want)
	}
}

func TestCronSchedulerStartStop(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler("@every 1h", time.UTC, nil)
	if err != nil {
		t.Fatalf("NewCronScheduler error: %v", err)
	}

	if err := s.Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := s.Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("second Start error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop error: %v", err)
	}
}

func TestCronSchedulerStopReleasesWatcher(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler("@every 1h", time.UTC, nil)
	if err != nil {
		t.Fatalf("NewCronScheduler error: %v", err)
	}
	if err := s.Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	s.mu.Lock()
	watcher := s.watcher
	s.mu.Unlock()

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	select {
	case <-watcher:
	case <-time.After(time.Second):
		t.Fatalf("watcher goroutine still running after Stop")
	}
}

func TestCronSchedulerStopsOnCancel(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler("@every 1h", time.UTC, nil)
	if err != nil {
		t.Fatalf("NewCronScheduler error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	s.mu.Lock()
	watcher := s.watcher
	s.mu.Unlock()

	cancel()
	select {
	case <-watcher:
	case <-time.After(time.Second):
		t.Fatalf("watcher goroutine still running after cancel")
	}

	s.mu.Lock()
	running := s.cron != nil
	s.mu.Unlock()
	if running {
		t.Fatalf("cron must be released after cancel")
	}
}
