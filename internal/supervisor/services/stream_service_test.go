// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/binlogsync/internal/mapping"
	"github.com/tomtom215/binlogsync/internal/models"
)

var _ suture.Service = (*StreamService)(nil)

// scriptedRunner returns errs in order, then blocks until cancelled.
type scriptedRunner struct {
	mu   sync.Mutex
	errs []error
	runs atomic.Int32
}

func (r *scriptedRunner) Run(ctx context.Context) error {
	r.runs.Add(1)
	r.mu.Lock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()
	<-ctx.Done()
	return nil
}

type fatalRecorder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fatalRecorder) record(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.err = err
}

func (f *fatalRecorder) get() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.err
}

func connErr() error {
	return &models.ConnectivityError{Target: models.TargetSource, Err: errors.New("connection reset")}
}

func TestStreamService_ConnectivityErrorRestarts(t *testing.T) {
	t.Parallel()

	rec := &fatalRecorder{}
	svc := NewStreamService(&scriptedRunner{errs: []error{connErr()}}, StreamServiceConfig{
		MaxConsecutiveFailures: 3,
		OnFatal:                rec.record,
	})

	err := svc.Serve(context.Background())
	var ce *models.ConnectivityError
	if !errors.As(err, &ce) {
		t.Fatalf("Serve() = %v, want ConnectivityError for suture to restart", err)
	}
	if calls, _ := rec.get(); calls != 0 {
		t.Errorf("OnFatal called %d times, want 0", calls)
	}
}

func TestStreamService_FatalErrorStops(t *testing.T) {
	t.Parallel()

	mapErr := &mapping.MappingError{Table: "fa_clubs", Expected: 53, Actual: 52}
	rec := &fatalRecorder{}
	svc := NewStreamService(&scriptedRunner{errs: []error{mapErr}}, StreamServiceConfig{OnFatal: rec.record})

	if err := svc.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
		t.Fatalf("Serve() = %v, want ErrDoNotRestart", err)
	}
	calls, got := rec.get()
	if calls != 1 || !errors.As(got, new(*mapping.MappingError)) {
		t.Errorf("OnFatal calls=%d err=%v", calls, got)
	}
	if !errors.Is(svc.FatalError(), got) {
		t.Errorf("FatalError() = %v", svc.FatalError())
	}
}

func TestStreamService_BreakerEscalates(t *testing.T) {
	t.Parallel()

	runner := &scriptedRunner{errs: []error{connErr(), connErr(), connErr(), connErr()}}
	rec := &fatalRecorder{}
	svc := NewStreamService(runner, StreamServiceConfig{
		MaxConsecutiveFailures: 3,
		FailureWindow:          time.Minute,
		OnFatal:                rec.record,
	})

	for i := 1; i <= 2; i++ {
		if err := svc.Serve(context.Background()); errors.Is(err, suture.ErrDoNotRestart) {
			t.Fatalf("attempt %d stopped early", i)
		}
	}
	if err := svc.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
		t.Fatalf("third failure: Serve() = %v, want ErrDoNotRestart", err)
	}

	calls, got := rec.get()
	if calls != 1 {
		t.Fatalf("OnFatal called %d times, want 1", calls)
	}
	if !errors.Is(got, ErrRestartsExhausted) || !errors.As(got, new(*models.ConnectivityError)) {
		t.Errorf("fatal error = %v, want exhausted wrapping connectivity", got)
	}

	// Further attempts are rejected without running the stream.
	if err := svc.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
		t.Errorf("Serve() after open = %v", err)
	}
	if runner.runs.Load() != 3 {
		t.Errorf("runner ran %d times, want 3", runner.runs.Load())
	}
	if calls, _ := rec.get(); calls != 1 {
		t.Errorf("OnFatal called %d times, want exactly once", calls)
	}
}

func TestStreamService_CancellationIsClean(t *testing.T) {
	t.Parallel()

	svc := NewStreamService(&scriptedRunner{}, StreamServiceConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
	if svc.FatalError() != nil {
		t.Errorf("FatalError() = %v, want nil", svc.FatalError())
	}
}

func TestStreamService_UnderSupervisor(t *testing.T) {
	t.Parallel()

	runner := &scriptedRunner{errs: []error{connErr(), connErr()}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewStreamService(runner, StreamServiceConfig{
		MaxConsecutiveFailures: 2,
		OnFatal:                func(error) { cancel() },
	})

	sup := suture.New("test-stream", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(svc)

	select {
	case <-sup.ServeBackground(ctx):
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not stop after fatal escalation")
	}
	if !errors.Is(svc.FatalError(), ErrRestartsExhausted) {
		t.Errorf("FatalError() = %v, want ErrRestartsExhausted", svc.FatalError())
	}
	if runner.runs.Load() != 2 {
		t.Errorf("runner ran %d times, want 2", runner.runs.Load())
	}
}
