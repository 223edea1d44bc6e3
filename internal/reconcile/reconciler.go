// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/binlogsync/internal/logging"
	"github.com/tomtom215/binlogsync/internal/metrics"
	"github.com/tomtom215/binlogsync/internal/models"
)

// previewColumns is how many leading columns are logged at debug level
// before an upsert.
const previewColumns = 5

// Outcome is the typed result of an apply stage.
type Outcome int

const (
	// OutcomeFailed means the stage did not change the destination.
	OutcomeFailed Outcome = iota
	// OutcomeUpserted means the atomic upsert statement succeeded.
	OutcomeUpserted
	// OutcomeInserted means the fallback found no row and inserted one.
	OutcomeInserted
	// OutcomeUpdated means the fallback found the row and overwrote it.
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUpserted:
		return "upserted"
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	default:
		return "failed"
	}
}

// Fallback reports whether the outcome came from the fallback stage.
func (o Outcome) Fallback() bool {
	return o == OutcomeInserted || o == OutcomeUpdated
}

// Reconciler applies target records to one destination table.
// A connection is taken from the pool for each call and released before
// the call returns.
type Reconciler struct {
	db      *sql.DB
	dialect Dialect
	table   string
	key     string
}

// New creates a reconciler for table keyed by key.
func New(db *sql.DB, dialect Dialect, table, key string) (*Reconciler, error) {
	if db == nil {
		return nil, errors.New("reconcile: nil database")
	}
	if dialect == nil {
		return nil, errors.New("reconcile: nil dialect")
	}
	if table == "" || key == "" {
		return nil, errors.New("reconcile: table and key column are required")
	}
	return &Reconciler{db: db, dialect: dialect, table: table, key: key}, nil
}

// Ping verifies the destination is reachable.
func (r *Reconciler) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return &models.ConnectivityError{Target: models.TargetDestination, Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (r *Reconciler) Close() error {
	return r.db.Close()
}

// Upsert writes rec so the destination row equals it, whether or not the
// row existed. The atomic statement is tried first; if it fails, an
// existence check followed by an UPDATE or INSERT is tried. If both stages
// fail an *ApplyError carrying both causes is returned.
func (r *Reconciler) Upsert(ctx context.Context, rec *models.TargetRecord) (Outcome, error) {
	if rec.KeyColumn() != r.key {
		return OutcomeFailed, &ApplyError{
			Op:      OpUpsert,
			Table:   r.table,
			Key:     rec.Key(),
			Record:  rec.Map(),
			Primary: fmt.Errorf("record keyed by %q, table keyed by %q", rec.KeyColumn(), r.key),
		}
	}

	log := logging.Ctx(ctx)
	r.logPreview(ctx, rec)

	start := time.Now()
	outcome, primaryErr := r.upsertAtomic(ctx, rec)
	if primaryErr == nil {
		metrics.RecordApply(OpUpsert, outcome.String(), time.Since(start), nil)
		return outcome, nil
	}

	log.Warn().Err(primaryErr).
		Str("table", r.table).
		Interface("key", rec.Key()).
		Msg("Atomic upsert failed, falling back to check-then-write")
	metrics.ApplyFallbacks.Inc()

	outcome, fallbackErr := r.upsertFallback(ctx, rec)
	if fallbackErr == nil {
		log.Info().
			Str("table", r.table).
			Interface("key", rec.Key()).
			Str("outcome", outcome.String()).
			Msg("Fallback apply succeeded")
		metrics.RecordApply(OpUpsert, outcome.String(), time.Since(start), nil)
		return outcome, nil
	}

	applyErr := &ApplyError{
		Op:       OpUpsert,
		Table:    r.table,
		Key:      rec.Key(),
		Record:   rec.Map(),
		Primary:  primaryErr,
		Fallback: fallbackErr,
	}
	log.Error().Err(applyErr).
		Str("table", r.table).
		Interface("record", applyErr.Record).
		Msg("Upsert failed on both paths")
	metrics.RecordApply(OpUpsert, OutcomeFailed.String(), time.Since(start), applyErr)
	return OutcomeFailed, applyErr
}

// upsertAtomic runs the dialect's single-statement upsert.
func (r *Reconciler) upsertAtomic(ctx context.Context, rec *models.TargetRecord) (Outcome, error) {
	query := r.dialect.UpsertSQL(r.table, rec.Columns(), r.key)
	err := r.withConn(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, query, rec.Values()...)
		return err
	})
	if err != nil {
		return OutcomeFailed, err
	}
	return OutcomeUpserted, nil
}

// upsertFallback checks for the key and issues a full-column UPDATE or a
// plain INSERT in a fresh transaction.
func (r *Reconciler) upsertFallback(ctx context.Context, rec *models.TargetRecord) (Outcome, error) {
	columns := rec.Columns()
	values := rec.Values()
	key := rec.Key()
	outcome := OutcomeFailed

	err := r.withConn(ctx, func(q querier) error {
		var one int
		err := q.QueryRowContext(ctx, existsSQL(r.dialect, r.table, r.key), key).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := q.ExecContext(ctx, insertSQL(r.dialect, r.table, columns), values...); err != nil {
				return fmt.Errorf("fallback insert: %w", err)
			}
			outcome = OutcomeInserted
			return nil
		case err != nil:
			return fmt.Errorf("existence check: %w", err)
		}

		args := make([]any, 0, len(values))
		for i, c := range columns {
			if c != r.key {
				args = append(args, values[i])
			}
		}
		if len(args) > 0 {
			args = append(args, key)
			if _, err := q.ExecContext(ctx, updateSQL(r.dialect, r.table, columns, r.key), args...); err != nil {
				return fmt.Errorf("fallback update: %w", err)
			}
		}
		outcome = OutcomeUpdated
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}
	return outcome, nil
}

// Delete removes the row with the given key and returns the number of rows
// removed. Deleting an absent key removes nothing and is not an error.
func (r *Reconciler) Delete(ctx context.Context, key any) (int64, error) {
	if key == nil {
		return 0, ErrMissingKey
	}

	start := time.Now()
	var affected int64
	err := r.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, deleteSQL(r.dialect, r.table, r.key), key)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		if err != nil {
			// Some drivers cannot report affected rows; the delete itself succeeded.
			affected = -1
		}
		return nil
	})
	if err != nil {
		applyErr := &ApplyError{Op: OpDelete, Table: r.table, Key: key, Primary: err}
		logging.Ctx(ctx).Error().Err(applyErr).
			Str("table", r.table).
			Interface("key", key).
			Msg("Delete failed")
		metrics.RecordApply(OpDelete, OutcomeFailed.String(), time.Since(start), applyErr)
		return 0, applyErr
	}

	metrics.RecordApply(OpDelete, "deleted", time.Since(start), nil)
	return affected, nil
}

// querier is the subset of *sql.Conn and *sql.Tx the stages need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withConn acquires a dedicated connection, optionally opens a
// transaction, runs fn and releases the connection. The transaction is
// committed when fn succeeds and rolled back otherwise.
func (r *Reconciler) withConn(ctx context.Context, fn func(q querier) error) (err error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			logging.Debug().Err(cerr).Msg("Failed to release destination connection")
		}
	}()

	if !r.dialect.Transactional() {
		return fn(conn)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.Warn().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// logPreview logs the leading columns of a record at debug level.
func (r *Reconciler) logPreview(ctx context.Context, rec *models.TargetRecord) {
	log := logging.Ctx(ctx)
	cols := rec.Columns()
	vals := rec.Values()
	n := previewColumns
	if len(cols) < n {
		n = len(cols)
	}
	ev := log.Debug().
		Str("table", r.table).
		Int("columns", len(cols)).
		Interface("key", rec.Key())
	for i := 0; i < n; i++ {
		ev = ev.Interface(cols[i], vals[i])
	}
	ev.Msg("Prepared upsert")
}
