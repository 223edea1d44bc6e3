// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package models

import (
	"errors"
	"fmt"
)

// Record is a source row keyed by column name, before normalization.
type Record map[string]any

// ColumnOrder lists the source table's columns in definition order. It is
// used to interpret positional row images.
type ColumnOrder []string

// Validate rejects empty names and duplicates.
func (o ColumnOrder) Validate() error {
	seen := make(map[string]struct{}, len(o))
	for i, name := range o {
		if name == "" {
			return fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("column %q listed more than once", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Contains reports whether name is part of the order.
func (o ColumnOrder) Contains(name string) bool {
	for _, c := range o {
		if c == name {
			return true
		}
	}
	return false
}

// ColumnDefault is the default value of one destination column.
type ColumnDefault struct {
	Name  string `koanf:"name" json:"name" validate:"required"`
	Value any    `koanf:"value" json:"value"`
}

var (
	// ErrNoColumns is returned when a DefaultValueSet would be empty.
	ErrNoColumns = errors.New("default value set has no columns")

	// ErrKeyNotInDefaults is returned when the key column has no default.
	ErrKeyNotInDefaults = errors.New("key column is not part of the default value set")
)

// DefaultValueSet is the destination schema expressed as ordered defaults.
// It is immutable after construction.
type DefaultValueSet struct {
	version string
	key     string
	columns []ColumnDefault
	index   map[string]int
}

// NewDefaultValueSet validates and freezes a set of column defaults.
// The column order of cols is the column order of every TargetRecord built
// from the set.
func NewDefaultValueSet(version, keyColumn string, cols []ColumnDefault) (*DefaultValueSet, error) {
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}

	set := &DefaultValueSet{
		version: version,
		key:     keyColumn,
		columns: make([]ColumnDefault, len(cols)),
		index:   make(map[string]int, len(cols)),
	}
	copy(set.columns, cols)

	for i, c := range set.columns {
		if c.Name == "" {
			return nil, fmt.Errorf("default %d has an empty column name", i)
		}
		if _, dup := set.index[c.Name]; dup {
			return nil, fmt.Errorf("column %q has more than one default", c.Name)
		}
		set.index[c.Name] = i
	}
	if _, ok := set.index[keyColumn]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotInDefaults, keyColumn)
	}
	return set, nil
}

// Version identifies the revision of the defaults, for logs and quarantine entries.
func (s *DefaultValueSet) Version() string { return s.version }

// KeyColumn is the destination primary key column.
func (s *DefaultValueSet) KeyColumn() string { return s.key }

// Columns returns the destination column names in order.
func (s *DefaultValueSet) Columns() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Default returns the default value of a column.
func (s *DefaultValueSet) Default(name string) (any, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.columns[i].Value, true
}

// TargetRecord is a destination row with every column of its
// DefaultValueSet present, in the set's column order.
type TargetRecord struct {
	defaults   *DefaultValueSet
	values     []any
	keyPresent bool
}

// NewTargetRecord starts a record from a copy of the defaults.
func NewTargetRecord(defaults *DefaultValueSet) *TargetRecord {
	values := make([]any, len(defaults.columns))
	for i, c := range defaults.columns {
		values[i] = c.Value
	}
	return &TargetRecord{defaults: defaults, values: values}
}

// Set overwrites a column value. Unknown columns are ignored and reported
// with false. Setting the key column to a non-nil value marks the key as
// supplied by the source.
func (r *TargetRecord) Set(name string, value any) bool {
	i, ok := r.defaults.index[name]
	if !ok {
		return false
	}
	r.values[i] = value
	if name == r.defaults.key {
		r.keyPresent = value != nil
	}
	return true
}

// Get returns the value of a column.
func (r *TargetRecord) Get(name string) (any, bool) {
	i, ok := r.defaults.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Columns returns the column names in order.
func (r *TargetRecord) Columns() []string { return r.defaults.Columns() }

// Values returns the values aligned with Columns.
func (r *TargetRecord) Values() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}

// KeyColumn returns the primary key column name.
func (r *TargetRecord) KeyColumn() string { return r.defaults.key }

// Key returns the primary key value.
func (r *TargetRecord) Key() any {
	return r.values[r.defaults.index[r.defaults.key]]
}

// KeyPresent reports whether the source supplied a non-null key. A record
// whose key is still the default must not be applied.
func (r *TargetRecord) KeyPresent() bool { return r.keyPresent }

// DefaultsVersion returns the version of the defaults the record was built from.
func (r *TargetRecord) DefaultsVersion() string { return r.defaults.version }

// Map returns the record as a column to value map, for diagnostics.
func (r *TargetRecord) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for i, c := range r.defaults.columns {
		out[c.Name] = r.values[i]
	}
	return out
}
