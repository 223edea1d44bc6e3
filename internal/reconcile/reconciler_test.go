// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/binlogsync/internal/models"
)

// brokenUpsert forces the atomic stage to fail so the fallback runs.
type brokenUpsert struct {
	DuckDB
}

func (brokenUpsert) UpsertSQL(string, []string, string) string {
	return "UPSERT NOT VALID SQL"
}

func setupClubs(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		t.Fatalf("failed to open duckdb: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(`CREATE TABLE clubs (id INTEGER PRIMARY KEY, name VARCHAR, status INTEGER)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return db
}

func clubDefaults(t *testing.T) *models.DefaultValueSet {
	t.Helper()
	set, err := models.NewDefaultValueSet("test", "id", []models.ColumnDefault{
		{Name: "id", Value: 0},
		{Name: "name", Value: ""},
		{Name: "status", Value: 2},
	})
	if err != nil {
		t.Fatalf("NewDefaultValueSet() error = %v", err)
	}
	return set
}

func clubRecord(t *testing.T, id int, name string, status int) *models.TargetRecord {
	t.Helper()
	rec := models.NewTargetRecord(clubDefaults(t))
	rec.Set("id", id)
	rec.Set("name", name)
	rec.Set("status", status)
	return rec
}

func newReconciler(t *testing.T, db *sql.DB, d Dialect) *Reconciler {
	t.Helper()
	r, err := New(db, d, "clubs", "id")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func checkClub(t *testing.T, db *sql.DB, id int, wantName string, wantStatus int) {
	t.Helper()
	var name string
	var status int
	err := db.QueryRow(`SELECT name, status FROM clubs WHERE id = ?`, id).Scan(&name, &status)
	if err != nil {
		t.Fatalf("query club %d: %v", id, err)
	}
	if name != wantName || status != wantStatus {
		t.Errorf("club %d = (%q, %d), want (%q, %d)", id, name, status, wantName, wantStatus)
	}
}

func countClubs(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM clubs`).Scan(&n); err != nil {
		t.Fatalf("count clubs: %v", err)
	}
	return n
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	db := setupClubs(t)
	if _, err := New(nil, DuckDB{}, "clubs", "id"); err == nil {
		t.Error("expected error for nil db")
	}
	if _, err := New(db, nil, "clubs", "id"); err == nil {
		t.Error("expected error for nil dialect")
	}
	if _, err := New(db, DuckDB{}, "", "id"); err == nil {
		t.Error("expected error for empty table")
	}
}

func TestUpsert_AtomicIsIdempotent(t *testing.T) {
	t.Parallel()

	db := setupClubs(t)
	r := newReconciler(t, db, DuckDB{})
	ctx := context.Background()

	rec := clubRecord(t, 7, "Acme", 2)
	for i := 0; i < 3; i++ {
		outcome, err := r.Upsert(ctx, rec)
		if err != nil {
			t.Fatalf("Upsert() #%d error = %v", i, err)
		}
		if outcome != OutcomeUpserted {
			t.Errorf("Upsert() #%d outcome = %v, want upserted", i, outcome)
		}
	}

	if n := countClubs(t, db); n != 1 {
		t.Errorf("row count = %d, want 1", n)
	}
	checkClub(t, db, 7, "Acme", 2)

	if _, err := r.Upsert(ctx, clubRecord(t, 7, "Acme Renamed", 1)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	checkClub(t, db, 7, "Acme Renamed", 1)
}

func TestUpsert_FallbackInsertsThenUpdates(t *testing.T) {
	t.Parallel()

	db := setupClubs(t)
	r := newReconciler(t, db, brokenUpsert{})
	ctx := context.Background()

	outcome, err := r.Upsert(ctx, clubRecord(t, 1, "Alpha", 2))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if outcome != OutcomeInserted || !outcome.Fallback() {
		t.Errorf("outcome = %v, want inserted via fallback", outcome)
	}
	checkClub(t, db, 1, "Alpha", 2)

	outcome, err = r.Upsert(ctx, clubRecord(t, 1, "Alpha Two", 3))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Errorf("outcome = %v, want updated", outcome)
	}
	checkClub(t, db, 1, "Alpha Two", 3)

	if n := countClubs(t, db); n != 1 {
		t.Errorf("row count = %d, want 1", n)
	}
}

func TestUpsert_BothStagesFail(t *testing.T) {
	t.Parallel()

	db := setupClubs(t)
	r, err := New(db, DuckDB{}, "missing_table", "id")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	outcome, err := r.Upsert(context.Background(), clubRecord(t, 5, "Ghost", 2))
	if outcome != OutcomeFailed {
		t.Errorf("outcome = %v, want failed", outcome)
	}

	var applyErr *ApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("expected *ApplyError, got %T: %v", err, err)
	}
	if applyErr.Primary == nil || applyErr.Fallback == nil {
		t.Errorf("expected both causes, got primary=%v fallback=%v", applyErr.Primary, applyErr.Fallback)
	}
	if applyErr.Op != OpUpsert || applyErr.Key != 5 {
		t.Errorf("ApplyError = %+v", applyErr)
	}
	if applyErr.Record["name"] != "Ghost" {
		t.Errorf("record not carried on error: %v", applyErr.Record)
	}
}

func TestUpsert_KeyColumnMismatch(t *testing.T) {
	t.Parallel()

	db := setupClubs(t)
	r, err := New(db, DuckDB{}, "clubs", "name")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = r.Upsert(context.Background(), clubRecord(t, 1, "x", 2))
	var applyErr *ApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("expected *ApplyError, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	db := setupClubs(t)
	r := newReconciler(t, db, DuckDB{})
	ctx := context.Background()

	if _, err := r.Upsert(ctx, clubRecord(t, 3, "Gamma", 2)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	n, err := r.Delete(ctx, 3)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Delete() affected = %d, want 1", n)
	}

	n, err = r.Delete(ctx, 3)
	if err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second Delete() affected = %d, want 0", n)
	}
}

func TestDelete_NilKey(t *testing.T) {
	t.Parallel()

	r := newReconciler(t, setupClubs(t), DuckDB{})
	if _, err := r.Delete(context.Background(), nil); !errors.Is(err, ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}
}

func TestDelete_FailureIsApplyError(t *testing.T) {
	t.Parallel()

	r, err := New(setupClubs(t), DuckDB{}, "missing_table", "id")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = r.Delete(context.Background(), 1)
	var applyErr *ApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("expected *ApplyError, got %v", err)
	}
	if applyErr.Op != OpDelete {
		t.Errorf("Op = %s, want %s", applyErr.Op, OpDelete)
	}
}

func TestApplyError_Unwrap(t *testing.T) {
	t.Parallel()

	primary := errors.New("primary")
	fallback := errors.New("fallback")
	err := &ApplyError{Op: OpUpsert, Table: "clubs", Key: 1, Primary: primary, Fallback: fallback}
	if !errors.Is(err, primary) || !errors.Is(err, fallback) {
		t.Error("expected both causes to be reachable with errors.Is")
	}

	single := &ApplyError{Op: OpDelete, Table: "clubs", Key: 1, Primary: primary}
	if errors.Is(single, fallback) {
		t.Error("unexpected fallback cause")
	}
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	for o, want := range map[Outcome]string{
		OutcomeFailed:   "failed",
		OutcomeUpserted: "upserted",
		OutcomeInserted: "inserted",
		OutcomeUpdated:  "updated",
	} {
		if o.String() != want {
			t.Errorf("%d.String() = %s, want %s", o, o.String(), want)
		}
	}
}
