package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestScheduler_RegisterTask(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Stop()

	cfg := TaskConfig{ID: "poll", Name: "Poll", Interval: time.Hour, Func: func(context.Context) error { return nil }}
	if err := s.RegisterTask(cfg); err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}
	if err := s.RegisterTask(cfg); err == nil {
		t.Error("expected error for duplicate task ID")
	}
	if err := s.RegisterTask(TaskConfig{ID: "bad", Name: "Bad", Func: cfg.Func}); err == nil {
		t.Error("expected error for task without schedule")
	}

	info, err := s.GetTask("poll")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if info.Schedule != "@every 1h0m0s" {
		t.Errorf("Schedule = %q, want @every 1h0m0s", info.Schedule)
	}
}

func TestScheduler_RunNow(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Stop()

	var runs atomic.Int32
	err = s.RegisterTask(TaskConfig{
		ID:       "poll",
		Name:     "Poll",
		Interval: time.Hour,
		Func: func(context.Context) error {
			runs.Add(1)
			return errors.New("boom")
		},
	})
	if err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := s.RunNow("poll"); err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}
	waitFor(t, func() bool {
		info, _ := s.GetTask("poll")
		return info.LastRun != nil
	})

	info, _ := s.GetTask("poll")
	if info.LastError != "boom" {
		t.Errorf("LastError = %q, want boom", info.LastError)
	}
	if runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runs.Load())
	}
	if err := s.RunNow("missing"); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestScheduler_NoOverlap(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	release := make(chan struct{})
	var active, maxActive atomic.Int32
	err = s.RegisterTask(TaskConfig{
		ID:       "slow",
		Name:     "Slow",
		Interval: time.Hour,
		Func: func(ctx context.Context) error {
			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			defer active.Add(-1)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}

	go s.executeTask("slow")
	waitFor(t, func() bool { return active.Load() == 1 })

	if s.executeTask("slow") {
		t.Error("expected second run to be skipped while the first is running")
	}
	if err := s.RunNow("slow"); err == nil {
		t.Error("expected RunNow to refuse a running task")
	}

	close(release)
	waitFor(t, func() bool { return active.Load() == 0 })
	if maxActive.Load() != 1 {
		t.Errorf("max concurrent runs = %d, want 1", maxActive.Load())
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestScheduler_StopCancelsRunningTask(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	started := make(chan struct{})
	var cancelled atomic.Bool
	err = s.RegisterTask(TaskConfig{
		ID:         "blocking",
		Name:       "Blocking",
		Interval:   time.Hour,
		RunOnStart: true,
		Func: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			cancelled.Store(true)
			return ctx.Err()
		},
	})
	if err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-started

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !cancelled.Load() {
		t.Error("expected running task to observe cancellation")
	}
}
