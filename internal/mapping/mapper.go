// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

// Package mapping turns raw row images into destination records.
//
// Resolve gives names to positional images using the operator-maintained
// column order of the source table. Normalize overlays the resulting record
// on the destination defaults. Both are pure; neither touches the network.
package mapping

import (
	"errors"
	"fmt"

	"github.com/tomtom215/binlogsync/internal/logging"
	"github.com/tomtom215/binlogsync/internal/metrics"
	"github.com/tomtom215/binlogsync/internal/models"
)

// ErrNoColumnOrder is wrapped by MappingError when a positional image
// arrives for a table without a configured column order.
var ErrNoColumnOrder = errors.New("no column order configured")

// MappingError reports a row image that cannot be interpreted safely.
// No partial record is ever produced alongside it.
type MappingError struct {
	Table    string
	Expected int
	Actual   int
	Values   []any
	Err      error
}

func (e *MappingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mapping %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("mapping %s: column order has %d columns, row image has %d values",
		e.Table, e.Expected, e.Actual)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// Mapper resolves row images against per-table column orders.
type Mapper struct {
	orders map[string]models.ColumnOrder
}

// NewMapper creates a mapper. orders is keyed by source table name and is
// copied; later changes to the caller's map are not observed.
func NewMapper(orders map[string]models.ColumnOrder) (*Mapper, error) {
	m := &Mapper{orders: make(map[string]models.ColumnOrder, len(orders))}
	for table, order := range orders {
		if err := order.Validate(); err != nil {
			return nil, fmt.Errorf("column order for %s: %w", table, err)
		}
		cp := make(models.ColumnOrder, len(order))
		copy(cp, order)
		m.orders[table] = cp
	}
	return m, nil
}

// Resolve returns the image as a named record. Named images are returned
// unchanged. Positional images are zipped with the table's column order and
// must match its length exactly.
func (m *Mapper) Resolve(table string, image models.RowImage) (models.Record, error) {
	if !image.IsPositional() {
		return models.Record(image.Named), nil
	}

	order, ok := m.orders[table]
	if !ok || len(order) == 0 {
		metrics.MappingErrors.WithLabelValues(table).Inc()
		return nil, &MappingError{
			Table:  table,
			Actual: len(image.Values),
			Values: image.Values,
			Err:    ErrNoColumnOrder,
		}
	}

	if len(order) != len(image.Values) {
		logging.Error().
			Str("table", table).
			Int("expected", len(order)).
			Int("actual", len(image.Values)).
			Interface("values", image.Values).
			Msg("Column count mismatch, check the configured column order against the source table")
		metrics.MappingErrors.WithLabelValues(table).Inc()
		return nil, &MappingError{
			Table:    table,
			Expected: len(order),
			Actual:   len(image.Values),
			Values:   image.Values,
		}
	}

	rec := make(models.Record, len(order))
	for i, name := range order {
		rec[name] = image.Values[i]
	}
	return rec, nil
}
