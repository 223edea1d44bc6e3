// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package mapping

import (
	"errors"
	"testing"

	"github.com/tomtom215/binlogsync/internal/models"
)

func newTestMapper(t *testing.T) *Mapper {
	t.Helper()
	m, err := NewMapper(map[string]models.ColumnOrder{
		"fa_clubs": {"id", "name", "status"},
		"wide":     {"a", "b", "c", "d", "e"},
	})
	if err != nil {
		t.Fatalf("NewMapper() error = %v", err)
	}
	return m
}

func TestResolve_Positional(t *testing.T) {
	t.Parallel()

	m := newTestMapper(t)
	rec, err := m.Resolve("fa_clubs", models.PositionalImage(7, "Acme", 2))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(rec) != 3 || rec["id"] != 7 || rec["name"] != "Acme" || rec["status"] != 2 {
		t.Errorf("Resolve() = %v", rec)
	}
}

func TestResolve_NamedUnchanged(t *testing.T) {
	t.Parallel()

	m := newTestMapper(t)
	in := map[string]any{"id": 1, "extra": true}
	rec, err := m.Resolve("no_order_needed", models.NamedImage(in))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(rec) != 2 || rec["extra"] != true {
		t.Errorf("named image altered: %v", rec)
	}
}

func TestResolve_LengthMismatch(t *testing.T) {
	t.Parallel()

	m := newTestMapper(t)
	rec, err := m.Resolve("wide", models.PositionalImage(1, 2, 3, 4))
	if rec != nil {
		t.Errorf("expected no partial record, got %v", rec)
	}

	var mErr *MappingError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected *MappingError, got %v", err)
	}
	if mErr.Expected != 5 || mErr.Actual != 4 {
		t.Errorf("expected 5 vs 4, got %d vs %d", mErr.Expected, mErr.Actual)
	}
}

func TestResolve_NoOrder(t *testing.T) {
	t.Parallel()

	m := newTestMapper(t)
	_, err := m.Resolve("unknown", models.PositionalImage(1))
	if !errors.Is(err, ErrNoColumnOrder) {
		t.Fatalf("expected ErrNoColumnOrder, got %v", err)
	}
	var mErr *MappingError
	if !errors.As(err, &mErr) {
		t.Fatal("expected *MappingError")
	}
}

func TestNewMapper_InvalidOrder(t *testing.T) {
	t.Parallel()

	if _, err := NewMapper(map[string]models.ColumnOrder{"t": {"id", "id"}}); err == nil {
		t.Error("expected error for duplicate columns")
	}
}

func TestNewMapper_CopiesOrders(t *testing.T) {
	t.Parallel()

	orders := map[string]models.ColumnOrder{"t": {"id", "name"}}
	m, err := NewMapper(orders)
	if err != nil {
		t.Fatalf("NewMapper() error = %v", err)
	}
	orders["t"][0] = "changed"

	rec, err := m.Resolve("t", models.PositionalImage(1, "x"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if rec["id"] != 1 {
		t.Errorf("Resolve() = %v, want id taken from the original order", rec)
	}
}
