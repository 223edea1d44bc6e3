// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/binlogsync/internal/quarantine"
	"github.com/tomtom215/binlogsync/internal/stream"
)

const (
	defaultQuarantineLimit = 100
	maxQuarantineLimit     = 1000
)

// StatusProvider reports the replication state. *stream.Coordinator
// satisfies it.
type StatusProvider interface {
	State() stream.State
	Status() stream.Status
}

// QuarantineStore is the part of the quarantine journal the API exposes.
type QuarantineStore interface {
	List(ctx context.Context, limit int) ([]quarantine.Entry, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves the ops endpoints.
type Handler struct {
	status     StatusProvider
	quarantine QuarantineStore
}

// NewHandler creates a handler. q may be nil when the journal is disabled.
func NewHandler(status StatusProvider, q QuarantineStore) *Handler {
	return &Handler{status: status, quarantine: q}
}

type healthBody struct {
	State string `json:"state"`
}

// Healthz answers 200 while the stream is applying events and 503 otherwise.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	state := h.status.State()
	if state != stream.StateStreaming {
		rw.ServiceUnavailable("stream is " + state.String())
		return
	}
	rw.Success(healthBody{State: state.String()})
}

// Status returns the coordinator snapshot.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.status.Status())
}

// ListQuarantine returns the oldest quarantined records first.
func (h *Handler) ListQuarantine(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.quarantine == nil {
		rw.ServiceUnavailable("quarantine journal is disabled")
		return
	}

	limit := defaultQuarantineLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxQuarantineLimit {
			rw.BadRequest("limit must be between 1 and " + strconv.Itoa(maxQuarantineLimit))
			return
		}
		limit = n
	}

	entries, err := h.quarantine.List(r.Context(), limit)
	if err != nil {
		rw.InternalError(err)
		return
	}
	if entries == nil {
		entries = []quarantine.Entry{}
	}
	rw.List(entries, len(entries))
}

// DeleteQuarantine removes one entry after it has been reconciled by hand.
func (h *Handler) DeleteQuarantine(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.quarantine == nil {
		rw.ServiceUnavailable("quarantine journal is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.quarantine.Delete(r.Context(), id); err != nil {
		if errors.Is(err, quarantine.ErrNotFound) {
			rw.NotFound("no quarantine entry " + id)
			return
		}
		rw.InternalError(err)
		return
	}
	rw.NoContent()
}
