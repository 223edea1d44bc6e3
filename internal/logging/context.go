// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	requestIDKey     contextKey = "request_id"
	eventKey         contextKey = "binlog_event"
	loggerKey        contextKey = "logger"
)

// EventFields identifies the change event being handled.
type EventFields struct {
	Table     string
	Operation string
	Position  string
}

// GenerateCorrelationID returns the first 8 characters of a UUID.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// GenerateRequestID returns a full UUID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithCorrelationID returns a context carrying id. The coordinator
// assigns one per streaming session so every line of a session can be
// grouped.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context with a fresh correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns "" when no ID is set.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns a context carrying an HTTP request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns "" when no ID is set.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithEvent returns a context whose logger tags lines with the
// table, operation and binlog position of the event being applied.
func ContextWithEvent(ctx context.Context, f EventFields) context.Context {
	return context.WithValue(ctx, eventKey, f)
}

// EventFromContext returns the event fields, if any.
func EventFromContext(ctx context.Context) (EventFields, bool) {
	f, ok := ctx.Value(eventKey).(EventFields)
	return f, ok
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the stored logger or the global one.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with the context's correlation ID, request ID and
// event fields attached.
//
//	logging.Ctx(ctx).Warn().Err(err).Msg("Atomic upsert failed")
//	// {"level":"warn","correlation_id":"abc12345","table":"clubs","operation":"update","binlog_pos":"mysql-bin.000042:1543",...}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := CtxWith(ctx).Logger()
	return &logger
}

// CtxWith returns a logger context builder with the context fields set.
func CtxWith(ctx context.Context) zerolog.Context {
	logCtx := LoggerFromContext(ctx).With()

	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("request_id", id)
	}
	if f, ok := EventFromContext(ctx); ok {
		if f.Table != "" {
			logCtx = logCtx.Str("table", f.Table)
		}
		if f.Operation != "" {
			logCtx = logCtx.Str("operation", f.Operation)
		}
		if f.Position != "" {
			logCtx = logCtx.Str("binlog_pos", f.Position)
		}
	}
	return logCtx
}

// WithComponent creates a child logger with a component field.
//
//	log := logging.WithComponent("binlog")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
