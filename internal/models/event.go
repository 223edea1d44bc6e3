// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package models

import (
	"errors"
	"fmt"
	"time"
)

// Operation is the kind of row mutation carried by a ChangeEvent.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Valid reports whether op is one of the known operations.
func (op Operation) Valid() bool {
	switch op {
	case OpInsert, OpUpdate, OpDelete:
		return true
	default:
		return false
	}
}

// ErrMalformedEvent is returned by ChangeEvent.Validate.
var ErrMalformedEvent = errors.New("malformed change event")

// RowImage holds the values of one side (before or after) of a row mutation.
//
// Exactly one representation is used: Named when the decoder resolved
// column names, Values when only the ordinal position of each value is known.
type RowImage struct {
	Named  map[string]any
	Values []any
}

// NamedImage builds an image from resolved column names.
func NamedImage(values map[string]any) RowImage {
	return RowImage{Named: values}
}

// PositionalImage builds an image whose values are in source column order.
func PositionalImage(values ...any) RowImage {
	if values == nil {
		values = []any{}
	}
	return RowImage{Values: values}
}

// IsPositional reports whether the image lacks column names.
func (i RowImage) IsPositional() bool {
	return i.Named == nil
}

// RowChange is one row of a rows event. Insert populates After, Delete
// populates Before and Update carries both.
type RowChange struct {
	Before *RowImage
	After  *RowImage
}

// ChangeEvent is one row-level mutation event read from the change log.
// Position is the coordinate to resume from once the event has been
// applied. Resuming there never skips this event's successors; it may
// re-deliver events that were already applied.
type ChangeEvent struct {
	Op        Operation
	Schema    string
	Table     string
	Rows      []RowChange
	Position  LogPosition
	Timestamp time.Time
}

// Validate checks that every row carries the images its operation needs.
func (e *ChangeEvent) Validate() error {
	if !e.Op.Valid() {
		return fmt.Errorf("%w: unknown operation %q", ErrMalformedEvent, e.Op)
	}
	for i, row := range e.Rows {
		switch e.Op {
		case OpInsert:
			if row.After == nil {
				return fmt.Errorf("%w: insert row %d has no after image", ErrMalformedEvent, i)
			}
		case OpUpdate:
			if row.After == nil {
				return fmt.Errorf("%w: update row %d has no after image", ErrMalformedEvent, i)
			}
		case OpDelete:
			if row.Before == nil {
				return fmt.Errorf("%w: delete row %d has no before image", ErrMalformedEvent, i)
			}
		}
	}
	return nil
}

// Matches reports whether the event belongs to schema.table. An empty
// schema matches any schema.
func (e *ChangeEvent) Matches(schema, table string) bool {
	if schema != "" && e.Schema != schema {
		return false
	}
	return e.Table == table
}
