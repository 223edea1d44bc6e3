// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

/*
Package models defines the data structures shared by every stage of the
replication pipeline.

Key Components:

  - LogPosition: (file, offset) coordinate inside the source binlog
  - ChangeEvent: one Insert, Update or Delete rows event with its row images
  - RowImage: the before or after values of one row, named or positional
  - ColumnOrder: operator-maintained source column order for positional images
  - DefaultValueSet: versioned, ordered defaults covering every destination column
  - TargetRecord: fully populated destination row produced by normalization
  - ConnectivityError: source or destination unreachable

Data Flow:

	binlog.Source -> ChangeEvent -> mapping.Mapper (Record)
	    -> mapping.Normalize (TargetRecord) -> reconcile.Reconciler
	    -> position.FileStore (LogPosition)

Thread Safety:

Values in this package are not synchronized. A ChangeEvent and the records
derived from it are owned by the single goroutine driving the stream.
DefaultValueSet is immutable after construction and may be shared freely.
*/
package models
