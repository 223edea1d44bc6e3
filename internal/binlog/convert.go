// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package binlog

import (
	"fmt"
	"strings"

	gomysql "github.com/go-mysql-org/go-mysql/mysql"
	"github.com/go-mysql-org/go-mysql/replication"

	"github.com/tomtom215/binlogsync/internal/models"
)

// positionTracker remembers the last position it is safe to resume from.
type positionTracker struct {
	file     string
	boundary uint64
}

func (t *positionTracker) reset(pos models.LogPosition) {
	t.file = pos.File
	t.boundary = pos.Offset
}

// rotate moves to a new file. Fake rotates sent at stream start carry the
// current file and position and are handled the same way.
func (t *positionTracker) rotate(file string, offset uint64) {
	if file == "" {
		return
	}
	t.file = file
	t.boundary = offset
}

// commit records the end of a transaction. logPos is the header's next
// event position; zero means the server did not report one.
func (t *positionTracker) commit(logPos uint32) {
	if logPos == 0 {
		return
	}
	t.boundary = uint64(logPos)
}

func (t *positionTracker) position() models.LogPosition {
	return models.LogPosition{File: t.file, Offset: t.boundary}
}

// operationFor maps a rows event type to an operation.
func operationFor(t replication.EventType) (models.Operation, bool) {
	switch t {
	case replication.WRITE_ROWS_EVENTv0, replication.WRITE_ROWS_EVENTv1, replication.WRITE_ROWS_EVENTv2:
		return models.OpInsert, true
	case replication.UPDATE_ROWS_EVENTv0, replication.UPDATE_ROWS_EVENTv1, replication.UPDATE_ROWS_EVENTv2:
		return models.OpUpdate, true
	case replication.DELETE_ROWS_EVENTv0, replication.DELETE_ROWS_EVENTv1, replication.DELETE_ROWS_EVENTv2:
		return models.OpDelete, true
	default:
		return "", false
	}
}

// isCommit reports whether a query event ends a transaction. Non-XA
// engines such as MyISAM end with a COMMIT query instead of an XID event.
func isCommit(query []byte) bool {
	return strings.EqualFold(strings.TrimSpace(string(query)), "COMMIT")
}

// columnMeta is what a table map event tells us about its columns.
type columnMeta struct {
	names []string

	// unsigned and types are indexed by column position. The decoder
	// reads every integer as signed; unsigned columns are reinterpreted.
	unsigned map[int]bool
	types    []byte
}

// metaFor extracts column names and signedness from a table map event.
// Names are empty unless the server sends full row metadata; signedness
// is sent with minimal metadata too.
func metaFor(table *replication.TableMapEvent) columnMeta {
	if table == nil {
		return columnMeta{}
	}
	m := columnMeta{unsigned: table.UnsignedMap(), types: table.ColumnType}
	if len(table.ColumnName) > 0 {
		m.names = make([]string, len(table.ColumnName))
		for i, n := range table.ColumnName {
			m.names[i] = string(n)
		}
	}
	return m
}

// convertRows turns decoded rows into row changes. Update events carry
// before and after images as consecutive rows.
func convertRows(op models.Operation, cols columnMeta, rows [][]any) ([]models.RowChange, error) {
	switch op {
	case models.OpInsert:
		out := make([]models.RowChange, 0, len(rows))
		for _, r := range rows {
			img := toImage(cols, r)
			out = append(out, models.RowChange{After: &img})
		}
		return out, nil

	case models.OpDelete:
		out := make([]models.RowChange, 0, len(rows))
		for _, r := range rows {
			img := toImage(cols, r)
			out = append(out, models.RowChange{Before: &img})
		}
		return out, nil

	case models.OpUpdate:
		if len(rows)%2 != 0 {
			return nil, fmt.Errorf("update rows event has %d rows, want before/after pairs", len(rows))
		}
		out := make([]models.RowChange, 0, len(rows)/2)
		for i := 0; i < len(rows); i += 2 {
			before := toImage(cols, rows[i])
			after := toImage(cols, rows[i+1])
			out = append(out, models.RowChange{Before: &before, After: &after})
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported operation %q", op)
}

// toImage builds a named image when every value has a column name and a
// positional image otherwise.
func toImage(cols columnMeta, row []any) models.RowImage {
	values := make([]any, len(row))
	for i, v := range row {
		if cols.unsigned[i] {
			v = unsignedValue(v, cols.typeOf(i))
		}
		values[i] = normalizeValue(v)
	}

	if len(cols.names) != len(values) {
		return models.PositionalImage(values...)
	}
	named := make(map[string]any, len(values))
	for i, name := range cols.names {
		if name == "" {
			return models.PositionalImage(values...)
		}
		named[name] = values[i]
	}
	return models.NamedImage(named)
}

func (m columnMeta) typeOf(i int) byte {
	if i < len(m.types) {
		return m.types[i]
	}
	return 0
}

// unsignedValue reinterprets a signed integer read from an unsigned
// column. MEDIUMINT is decoded sign-extended into an int32.
func unsignedValue(v any, typ byte) any {
	switch n := v.(type) {
	case int8:
		return uint8(n)
	case int16:
		return uint16(n)
	case int32:
		if typ == gomysql.MYSQL_TYPE_INT24 {
			return uint32(n) & 0xFFFFFF
		}
		return uint32(n)
	case int64:
		return uint64(n)
	}
	return v
}

// normalizeValue converts decoder-owned buffers into values safe to keep
// after the next event is read.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
