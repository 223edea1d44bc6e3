// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package stream

import (
	"context"
	"errors"

	"github.com/tomtom215/binlogsync/internal/mapping"
	"github.com/tomtom215/binlogsync/internal/models"
	"github.com/tomtom215/binlogsync/internal/reconcile"
)

// ErrAlreadyRunning is returned by Run while another Run is active.
var ErrAlreadyRunning = errors.New("stream coordinator is already running")

// IsFatal reports whether err must stop replication for good. Mapping and
// apply failures are fatal; connectivity failures and cancellation are
// not. Unclassified errors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var mapErr *mapping.MappingError
	var applyErr *reconcile.ApplyError
	if errors.As(err, &mapErr) || errors.As(err, &applyErr) {
		return true
	}

	var connErr *models.ConnectivityError
	if errors.As(err, &connErr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
