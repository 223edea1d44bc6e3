// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package reconcile

import (
	"errors"
	"fmt"
)

// Operation names used in errors, logs and metrics.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// ErrMissingKey is returned when a record or delete has no key value.
var ErrMissingKey = errors.New("missing primary key")

// ApplyError reports a write the destination rejected. For upserts both the
// atomic and fallback causes are kept.
type ApplyError struct {
	Op       string
	Table    string
	Key      any
	Record   map[string]any
	Primary  error
	Fallback error
}

func (e *ApplyError) Error() string {
	if e.Fallback != nil {
		return fmt.Sprintf("%s %s key=%v failed: primary: %v; fallback: %v",
			e.Op, e.Table, e.Key, e.Primary, e.Fallback)
	}
	return fmt.Sprintf("%s %s key=%v failed: %v", e.Op, e.Table, e.Key, e.Primary)
}

func (e *ApplyError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Primary != nil {
		errs = append(errs, e.Primary)
	}
	if e.Fallback != nil {
		errs = append(errs, e.Fallback)
	}
	return errs
}
