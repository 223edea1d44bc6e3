// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package reconcile

import (
	"fmt"
	"strings"
)

// Dialect renders the statements the reconciler issues. All statements use
// "?" placeholders, which both go-sql-driver/mysql and duckdb-go accept.
type Dialect interface {
	// Name identifies the dialect in logs.
	Name() string

	// Quote quotes an identifier.
	Quote(ident string) string

	// UpsertSQL renders a single atomic insert-or-update statement over
	// all columns. Parameters are the column values in order.
	UpsertSQL(table string, columns []string, key string) string

	// Transactional reports whether statements should be wrapped in an
	// explicit BEGIN/COMMIT.
	Transactional() bool
}

// DialectByName maps a configured destination driver to its dialect.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "starrocks":
		return StarRocks{}, nil
	case "mysql":
		return MySQL{}, nil
	case "duckdb":
		return DuckDB{}, nil
	default:
		return nil, fmt.Errorf("unknown destination dialect %q", name)
	}
}

// MySQL renders INSERT ... ON DUPLICATE KEY UPDATE with backtick quoting.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (d MySQL) UpsertSQL(table string, columns []string, key string) string {
	var b strings.Builder
	b.WriteString(insertSQL(d, table, columns))
	b.WriteString(" ON DUPLICATE KEY UPDATE ")

	first := true
	for _, c := range columns {
		if c == key {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		q := d.Quote(c)
		b.WriteString(q + "=VALUES(" + q + ")")
	}
	if first {
		// Key-only tables still need a no-op assignment.
		q := d.Quote(key)
		b.WriteString(q + "=" + q)
	}
	return b.String()
}

func (MySQL) Transactional() bool { return true }

// StarRocks speaks the MySQL protocol and accepts the same upsert form on
// primary key tables. Statements run in autocommit mode; StarRocks does not
// support interactive multi-statement transactions.
type StarRocks struct {
	MySQL
}

func (StarRocks) Name() string { return "starrocks" }

func (StarRocks) Transactional() bool { return false }

// DuckDB renders INSERT ... ON CONFLICT (key) DO UPDATE with double quotes.
type DuckDB struct{}

func (DuckDB) Name() string { return "duckdb" }

func (DuckDB) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d DuckDB) UpsertSQL(table string, columns []string, key string) string {
	var b strings.Builder
	b.WriteString(insertSQL(d, table, columns))
	b.WriteString(" ON CONFLICT (" + d.Quote(key) + ") DO ")

	sets := make([]string, 0, len(columns))
	for _, c := range columns {
		if c == key {
			continue
		}
		q := d.Quote(c)
		sets = append(sets, q+" = EXCLUDED."+q)
	}
	if len(sets) == 0 {
		b.WriteString("NOTHING")
		return b.String()
	}
	b.WriteString("UPDATE SET ")
	b.WriteString(strings.Join(sets, ", "))
	return b.String()
}

func (DuckDB) Transactional() bool { return true }

func insertSQL(d Dialect, table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
	}
	return "INSERT INTO " + d.Quote(table) +
		" (" + strings.Join(quoted, ", ") + ") VALUES (" + placeholders(len(columns)) + ")"
}

// updateSQL sets every non-key column; the key value is the last parameter.
func updateSQL(d Dialect, table string, columns []string, key string) string {
	sets := make([]string, 0, len(columns))
	for _, c := range columns {
		if c == key {
			continue
		}
		sets = append(sets, d.Quote(c)+" = ?")
	}
	return "UPDATE " + d.Quote(table) + " SET " + strings.Join(sets, ", ") +
		" WHERE " + d.Quote(key) + " = ?"
}

func existsSQL(d Dialect, table, key string) string {
	return "SELECT 1 FROM " + d.Quote(table) + " WHERE " + d.Quote(key) + " = ? LIMIT 1"
}

func deleteSQL(d Dialect, table, key string) string {
	return "DELETE FROM " + d.Quote(table) + " WHERE " + d.Quote(key) + " = ?"
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
