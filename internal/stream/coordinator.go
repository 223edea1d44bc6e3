// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/binlogsync/internal/logging"
	"github.com/tomtom215/binlogsync/internal/mapping"
	"github.com/tomtom215/binlogsync/internal/metrics"
	"github.com/tomtom215/binlogsync/internal/models"
	"github.com/tomtom215/binlogsync/internal/quarantine"
	"github.com/tomtom215/binlogsync/internal/reconcile"
)

// DefaultApplyTimeout bounds the write of one row when Config leaves
// ApplyTimeout unset.
const DefaultApplyTimeout = 30 * time.Second

// Source yields change events starting at a position.
type Source interface {
	Open(ctx context.Context, pos models.LogPosition) error
	Next(ctx context.Context) (*models.ChangeEvent, error)
	Close() error
}

// Destination applies target records. *reconcile.Reconciler implements it.
type Destination interface {
	Upsert(ctx context.Context, rec *models.TargetRecord) (reconcile.Outcome, error)
	Delete(ctx context.Context, key any) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// PositionStore persists the resume position. *position.FileStore
// implements it.
type PositionStore interface {
	Load() models.LogPosition
	Save(pos models.LogPosition) error
}

// Quarantine records rows that were skipped or could not be applied.
// *quarantine.Journal implements it.
type Quarantine interface {
	Put(ctx context.Context, e quarantine.Entry) (quarantine.Entry, error)
}

// Config selects the replicated table and bounds destination writes.
type Config struct {
	// Schema filters events by database. Empty matches any schema.
	Schema string
	Table  string

	ApplyTimeout time.Duration
}

// Deps are the collaborators of a Coordinator. Quarantine is optional.
type Deps struct {
	Source          Source
	OpenDestination func(ctx context.Context) (Destination, error)
	Positions       PositionStore
	Mapper          *mapping.Mapper
	Defaults        *models.DefaultValueSet
	Quarantine      Quarantine
}

// Status is a point-in-time view of the coordinator.
type Status struct {
	State         string             `json:"state"`
	Table         string             `json:"table"`
	Position      models.LogPosition `json:"position"`
	LastEventAt   *time.Time         `json:"last_event_at,omitempty"`
	Runs          int64              `json:"runs"`
	Events        int64              `json:"events"`
	RowsUpserted  int64              `json:"rows_upserted"`
	RowsDeleted   int64              `json:"rows_deleted"`
	RowsSkipped   int64              `json:"rows_skipped"`
	Quarantined   int64              `json:"quarantined"`
	PersistErrors int64              `json:"persist_errors"`
	LastError     string             `json:"last_error,omitempty"`
}

// Coordinator owns the replication loop. Run may be called again after it
// returns; each call starts from the persisted position.
type Coordinator struct {
	cfg  Config
	deps Deps

	state   atomic.Int32
	running atomic.Bool

	mu          sync.RWMutex
	saved       models.LogPosition
	lastEventAt time.Time
	lastErr     string

	runs          atomic.Int64
	events        atomic.Int64
	rowsUpserted  atomic.Int64
	rowsDeleted   atomic.Int64
	rowsSkipped   atomic.Int64
	quarantined   atomic.Int64
	persistErrors atomic.Int64
}

// New creates a coordinator.
func New(cfg Config, deps Deps) (*Coordinator, error) {
	switch {
	case cfg.Table == "":
		return nil, errors.New("stream: table is required")
	case deps.Source == nil:
		return nil, errors.New("stream: source is required")
	case deps.OpenDestination == nil:
		return nil, errors.New("stream: destination opener is required")
	case deps.Positions == nil:
		return nil, errors.New("stream: position store is required")
	case deps.Mapper == nil:
		return nil, errors.New("stream: mapper is required")
	case deps.Defaults == nil:
		return nil, errors.New("stream: default value set is required")
	}
	if cfg.ApplyTimeout <= 0 {
		cfg.ApplyTimeout = DefaultApplyTimeout
	}

	c := &Coordinator{cfg: cfg, deps: deps}
	c.state.Store(int32(StateIdle))
	return c, nil
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Position returns the last persisted position.
func (c *Coordinator) Position() models.LogPosition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.saved
}

// Status returns a snapshot of the coordinator.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	st := Status{
		State:     c.State().String(),
		Table:     c.cfg.Table,
		Position:  c.saved,
		LastError: c.lastErr,
	}
	if !c.lastEventAt.IsZero() {
		t := c.lastEventAt
		st.LastEventAt = &t
	}
	c.mu.RUnlock()

	st.Runs = c.runs.Load()
	st.Events = c.events.Load()
	st.RowsUpserted = c.rowsUpserted.Load()
	st.RowsDeleted = c.rowsDeleted.Load()
	st.RowsSkipped = c.rowsSkipped.Load()
	st.Quarantined = c.quarantined.Load()
	st.PersistErrors = c.persistErrors.Load()
	return st
}

func (c *Coordinator) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	metrics.StreamState.Set(float64(s))
	if prev != s {
		logging.Info().
			Str("from", prev.String()).
			Str("to", s.String()).
			Str("table", c.cfg.Table).
			Msg("Stream state changed")
	}
}

func (c *Coordinator) recordError(err error) {
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
}

// Run streams events until ctx is cancelled or an error occurs. It returns
// nil on cancellation. Source and destination are released on every exit
// path.
func (c *Coordinator) Run(ctx context.Context) (err error) {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	c.runs.Add(1)
	c.setState(StateInitializing)

	var dest Destination
	var sourceOpen bool
	defer func() {
		if c.State() == StateStreaming {
			c.setState(StateDraining)
		}
		if sourceOpen {
			if cerr := c.deps.Source.Close(); cerr != nil {
				logging.Warn().Err(cerr).Msg("Failed to close binlog source")
			}
		}
		if dest != nil {
			if cerr := dest.Close(); cerr != nil {
				logging.Warn().Err(cerr).Msg("Failed to close destination")
			}
		}
		if err != nil {
			c.recordError(err)
			logging.Error().Err(err).
				Bool("fatal", IsFatal(err)).
				Str("position", c.Position().String()).
				Msg("Stream stopped")
		}
		c.setState(StateClosed)
	}()

	pos := c.deps.Positions.Load()
	c.mu.Lock()
	c.saved = pos
	c.mu.Unlock()

	dest, err = c.deps.OpenDestination(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if err = dest.Ping(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	if err = c.deps.Source.Open(ctx, pos); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	sourceOpen = true

	c.setState(StateStreaming)
	logging.Info().
		Str("position", pos.String()).
		Str("table", c.cfg.Table).
		Msg("Streaming started")

	for {
		ev, nerr := c.deps.Source.Next(ctx)
		if nerr != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Nothing is in flight; a broken stream has nothing to drain.
			c.setState(StateClosed)
			return nerr
		}
		if err = c.handleEvent(ctx, dest, ev); err != nil {
			return err
		}
	}
}

// handleEvent applies every row of ev and then persists its position.
// Any error leaves the position untouched.
func (c *Coordinator) handleEvent(ctx context.Context, dest Destination, ev *models.ChangeEvent) error {
	if !ev.Matches(c.cfg.Schema, c.cfg.Table) {
		metrics.EventsFiltered.Inc()
		return nil
	}
	if err := ev.Validate(); err != nil {
		return &mapping.MappingError{Table: ev.Table, Err: err}
	}

	c.events.Add(1)
	metrics.RecordEvent(string(ev.Op))
	c.mu.Lock()
	c.lastEventAt = time.Now()
	c.mu.Unlock()

	ctx = logging.ContextWithNewCorrelationID(ctx)
	ctx = logging.ContextWithEvent(ctx, logging.EventFields{
		Operation: string(ev.Op),
		Position:  ev.Position.String(),
	})

	for i := range ev.Rows {
		if err := c.applyRow(ctx, dest, ev, i); err != nil {
			return err
		}
	}

	c.persist(ev.Position)
	return nil
}

// applyRow writes one row. The write finishes even if shutdown begins
// mid-event; ApplyTimeout bounds each row, fallback included.
func (c *Coordinator) applyRow(ctx context.Context, dest Destination, ev *models.ChangeEvent, i int) error {
	applyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ApplyTimeout)
	defer cancel()

	switch ev.Op {
	case models.OpInsert, models.OpUpdate:
		return c.applyUpsert(applyCtx, dest, ev, i)
	case models.OpDelete:
		return c.applyDelete(applyCtx, dest, ev, i)
	}
	return nil
}

func (c *Coordinator) applyUpsert(ctx context.Context, dest Destination, ev *models.ChangeEvent, i int) error {
	log := logging.Ctx(ctx)
	row := ev.Rows[i]

	if ev.Op == models.OpUpdate && row.Before != nil {
		log.Debug().
			Interface("before", beforeFields(row.Before)).
			Msg("Update before image")
	}

	rec, err := c.deps.Mapper.Resolve(ev.Table, *row.After)
	if err != nil {
		return err
	}
	target := mapping.Normalize(rec, c.deps.Defaults)

	if !target.KeyPresent() {
		c.rowsSkipped.Add(1)
		log.Error().
			Str("key_column", target.KeyColumn()).
			Interface("record", target.Map()).
			Msg("Row has no primary key, skipping upsert")
		c.quarantine(ctx, quarantine.Entry{
			Reason:          quarantine.ReasonMissingKey,
			Operation:       ev.Op,
			Table:           ev.Table,
			Record:          target.Map(),
			Position:        ev.Position,
			Row:             i,
			DefaultsVersion: target.DefaultsVersion(),
		})
		return nil
	}

	outcome, err := dest.Upsert(ctx, target)
	if err != nil {
		entry := quarantine.Entry{
			Reason:          quarantine.ReasonApplyFailed,
			Operation:       ev.Op,
			Table:           ev.Table,
			Key:             target.Key(),
			Record:          target.Map(),
			Position:        ev.Position,
			Row:             i,
			Error:           err.Error(),
			DefaultsVersion: target.DefaultsVersion(),
		}
		c.quarantine(ctx, entry)
		return err
	}

	c.rowsUpserted.Add(1)
	log.Info().
		Interface("key", target.Key()).
		Str("outcome", outcome.String()).
		Msg("Row applied")
	return nil
}

func (c *Coordinator) applyDelete(ctx context.Context, dest Destination, ev *models.ChangeEvent, i int) error {
	log := logging.Ctx(ctx)
	row := ev.Rows[i]

	rec, err := c.deps.Mapper.Resolve(ev.Table, *row.Before)
	if err != nil {
		return err
	}
	keyColumn := c.deps.Defaults.KeyColumn()
	key := rec[keyColumn]

	affected, err := dest.Delete(ctx, key)
	if errors.Is(err, reconcile.ErrMissingKey) {
		c.rowsSkipped.Add(1)
		log.Warn().
			Str("key_column", keyColumn).
			Msg("Deleted row has no primary key, skipping")
		return nil
	}
	if err != nil {
		c.quarantine(ctx, quarantine.Entry{
			Reason:    quarantine.ReasonApplyFailed,
			Operation: ev.Op,
			Table:     ev.Table,
			Key:       key,
			Record:    rec,
			Position:  ev.Position,
			Row:       i,
			Error:     err.Error(),
		})
		return err
	}

	c.rowsDeleted.Add(1)
	log.Info().
		Interface("key", key).
		Int64("rows_affected", affected).
		Msg("Row deleted")
	return nil
}

// quarantine records e when a journal is configured. A journal failure is
// logged and otherwise ignored.
func (c *Coordinator) quarantine(ctx context.Context, e quarantine.Entry) {
	if c.deps.Quarantine == nil {
		return
	}
	if _, err := c.deps.Quarantine.Put(ctx, e); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("reason", e.Reason).
			Msg("Failed to quarantine row")
		return
	}
	c.quarantined.Add(1)
}

// persist saves pos when it moves the checkpoint forward. Save failures
// are logged and counted; streaming continues.
func (c *Coordinator) persist(pos models.LogPosition) {
	if pos.IsZero() {
		return
	}

	c.mu.RLock()
	saved := c.saved
	c.mu.RUnlock()

	switch cmp := pos.Compare(saved); {
	case cmp == 0:
		return
	case cmp < 0 && !saved.IsZero():
		logging.Warn().
			Str("position", pos.String()).
			Str("saved", saved.String()).
			Msg("Event position is behind saved position, not saving")
		return
	}

	if err := c.deps.Positions.Save(pos); err != nil {
		c.persistErrors.Add(1)
		metrics.PositionPersistFailures.Inc()
		logging.Warn().Err(fmt.Errorf("persist position: %w", err)).
			Str("position", pos.String()).
			Msg("Failed to persist binlog position")
		return
	}

	c.mu.Lock()
	c.saved = pos
	c.mu.Unlock()

	seq := int64(-1)
	if n, ok := pos.Sequence(); ok {
		seq = int64(n) //nolint:gosec // binlog sequence numbers are small
	}
	metrics.RecordPosition(seq, pos.Offset)
}

// beforeFields renders a before image for debug logging.
func beforeFields(img *models.RowImage) any {
	if img.IsPositional() {
		return img.Values
	}
	return img.Named
}
