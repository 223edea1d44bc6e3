// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/binlogsync/internal/logging"
	"github.com/tomtom215/binlogsync/internal/metrics"
	"github.com/tomtom215/binlogsync/internal/stream"
)

// ErrRestartsExhausted wraps the last stream error once the restart
// breaker opens.
var ErrRestartsExhausted = errors.New("stream restarts exhausted")

// StreamRunner runs one replication session. *stream.Coordinator
// implements it.
type StreamRunner interface {
	Run(ctx context.Context) error
}

// StreamServiceConfig controls restart escalation.
type StreamServiceConfig struct {
	// MaxConsecutiveFailures opens the breaker. Default: 5
	MaxConsecutiveFailures uint32

	// FailureWindow clears the failure count while the breaker is closed.
	// A session that outlives the window does not count. Default: 5m
	FailureWindow time.Duration

	// OnFatal is called once with the error that stopped replication.
	OnFatal func(err error)
}

// StreamService supervises the replication loop.
//
// Connectivity failures are returned to suture, which restarts the
// service with backoff and the coordinator resumes from the saved
// position. Fatal errors, and connectivity failures once the breaker has
// opened, call OnFatal and return suture.ErrDoNotRestart.
type StreamService struct {
	runner  StreamRunner
	breaker *gobreaker.CircuitBreaker[interface{}]
	onFatal func(error)
	name    string

	fatalOnce sync.Once
	mu        sync.Mutex
	fatalErr  error
}

// NewStreamService wraps runner.
func NewStreamService(runner StreamRunner, cfg StreamServiceConfig) *StreamService {
	if cfg.MaxConsecutiveFailures == 0 {
		cfg.MaxConsecutiveFailures = 5
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = 5 * time.Minute
	}

	name := "stream-restarts"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	threshold := cfg.MaxConsecutiveFailures
	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.FailureWindow,
		// The process exits once the breaker opens; it never half-opens.
		Timeout: 24 * time.Hour,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Stream restart breaker changed state")
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
		},
	})

	return &StreamService{
		runner:  runner,
		breaker: breaker,
		onFatal: cfg.OnFatal,
		name:    "stream",
	}
}

// Serve implements suture.Service.
func (s *StreamService) Serve(ctx context.Context) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.runner.Run(ctx)
	})

	switch {
	case err == nil:
		return ctx.Err()

	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return s.fail(ErrRestartsExhausted)

	case stream.IsFatal(err):
		return s.fail(err)

	case s.breaker.State() == gobreaker.StateOpen:
		return s.fail(fmt.Errorf("%w: %w", ErrRestartsExhausted, err))
	}

	metrics.StreamRestarts.Inc()
	logging.Warn().Err(err).
		Uint32("consecutive_failures", s.breaker.Counts().ConsecutiveFailures).
		Msg("Stream failed, restarting from saved position")
	return err
}

func (s *StreamService) fail(err error) error {
	s.fatalOnce.Do(func() {
		s.mu.Lock()
		s.fatalErr = err
		s.mu.Unlock()

		logging.Error().Err(err).Msg("Replication stopped")
		if s.onFatal != nil {
			s.onFatal(err)
		}
	})
	return suture.ErrDoNotRestart
}

// FatalError returns the error that stopped replication, if any.
func (s *StreamService) FatalError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatalErr
}

// String implements fmt.Stringer for suture logs.
func (s *StreamService) String() string {
	return s.name
}
