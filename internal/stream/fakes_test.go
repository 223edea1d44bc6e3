// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package stream

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/binlogsync/internal/mapping"
	"github.com/tomtom215/binlogsync/internal/models"
	"github.com/tomtom215/binlogsync/internal/quarantine"
	"github.com/tomtom215/binlogsync/internal/reconcile"
)

const sourceTable = "fa_clubs"

var startPos = models.LogPosition{File: "mysql-bin.000001", Offset: 4}

// fakeSource replays a fixed list of events. When the list is exhausted it
// calls onDrained and blocks until the context is done.
type fakeSource struct {
	events    []*models.ChangeEvent
	openErr   error
	nextErr   error
	onDrained func()
	onClose   func()

	mu       sync.Mutex
	openedAt models.LogPosition
	opens    int
	closes   int
	idx      int
}

func (s *fakeSource) Open(_ context.Context, pos models.LogPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return s.openErr
	}
	s.opens++
	s.openedAt = pos
	s.idx = 0
	return nil
}

func (s *fakeSource) Next(ctx context.Context) (*models.ChangeEvent, error) {
	s.mu.Lock()
	if s.idx < len(s.events) {
		ev := s.events[s.idx]
		s.idx++
		s.mu.Unlock()
		return ev, nil
	}
	s.mu.Unlock()

	if s.nextErr != nil {
		return nil, s.nextErr
	}
	if s.onDrained != nil {
		s.onDrained()
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *fakeSource) Close() error {
	if s.onClose != nil {
		s.onClose()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// memStore is an in-memory position store.
type memStore struct {
	mu      sync.Mutex
	pos     models.LogPosition
	saves   []models.LogPosition
	saveErr error
}

func (m *memStore) Load() models.LogPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos.IsZero() {
		return startPos
	}
	return m.pos
}

func (m *memStore) Save(pos models.LogPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.pos = pos
	m.saves = append(m.saves, pos)
	return nil
}

func (m *memStore) Saves() []models.LogPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LogPosition(nil), m.saves...)
}

// memQuarantine collects quarantined entries.
type memQuarantine struct {
	mu      sync.Mutex
	entries []quarantine.Entry
}

func (q *memQuarantine) Put(_ context.Context, e quarantine.Entry) (quarantine.Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, e)
	return e, nil
}

func (q *memQuarantine) Entries() []quarantine.Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]quarantine.Entry(nil), q.entries...)
}

// slowDestination delays every upsert by delay unless ctx ends first.
type slowDestination struct {
	Destination
	delay time.Duration
}

func (d slowDestination) Upsert(ctx context.Context, rec *models.TargetRecord) (reconcile.Outcome, error) {
	select {
	case <-time.After(d.delay):
	case <-ctx.Done():
		return reconcile.OutcomeFailed, ctx.Err()
	}
	return d.Destination.Upsert(ctx, rec)
}

// keepOpen leaves the shared test database open when the coordinator
// closes its destination.
type keepOpen struct {
	*reconcile.Reconciler
	closed bool
}

func (k *keepOpen) Close() error {
	k.closed = true
	return nil
}

type harness struct {
	db     *sql.DB
	source *fakeSource
	store  *memStore
	quar   *memQuarantine
	coord  *Coordinator
	dest   *keepOpen
}

func setupDB(t *testing.T, createTable bool) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		t.Fatalf("failed to open duckdb: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if createTable {
		if _, err := db.Exec(`CREATE TABLE clubs (id INTEGER PRIMARY KEY, name VARCHAR, status INTEGER)`); err != nil {
			t.Fatalf("failed to create table: %v", err)
		}
	}
	return db
}

func newHarness(t *testing.T, events ...*models.ChangeEvent) *harness {
	return newHarnessWithDB(t, setupDB(t, true), events...)
}

func newHarnessWithDB(t *testing.T, db *sql.DB, events ...*models.ChangeEvent) *harness {
	t.Helper()
	return newHarnessWithDialect(t, db, reconcile.DuckDB{}, events...)
}

func newHarnessWithDialect(t *testing.T, db *sql.DB, dialect reconcile.Dialect, events ...*models.ChangeEvent) *harness {
	t.Helper()

	defaults, err := models.NewDefaultValueSet("v1", "id", []models.ColumnDefault{
		{Name: "id", Value: 0},
		{Name: "name", Value: ""},
		{Name: "status", Value: 2},
	})
	if err != nil {
		t.Fatalf("NewDefaultValueSet() error = %v", err)
	}
	mapper, err := mapping.NewMapper(map[string]models.ColumnOrder{
		sourceTable: {"id", "name", "status"},
	})
	if err != nil {
		t.Fatalf("NewMapper() error = %v", err)
	}

	h := &harness{
		db:     db,
		source: &fakeSource{events: events},
		store:  &memStore{},
		quar:   &memQuarantine{},
	}

	coord, err := New(Config{Schema: "app", Table: sourceTable}, Deps{
		Source: h.source,
		OpenDestination: func(context.Context) (Destination, error) {
			r, err := reconcile.New(db, dialect, "clubs", "id")
			if err != nil {
				return nil, err
			}
			h.dest = &keepOpen{Reconciler: r}
			return h.dest, nil
		},
		Positions:  h.store,
		Mapper:     mapper,
		Defaults:   defaults,
		Quarantine: h.quar,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.coord = coord
	return h
}

// runUntilDrained runs the coordinator until the source has replayed every
// event, then cancels and returns Run's result.
func (h *harness) runUntilDrained(t *testing.T) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.source.onDrained = cancel
	return h.coord.Run(ctx)
}

func pos(offset uint64) models.LogPosition {
	return models.LogPosition{File: "mysql-bin.000001", Offset: offset}
}

func named(values map[string]any) *models.RowImage {
	img := models.NamedImage(values)
	return &img
}

func positional(values ...any) *models.RowImage {
	img := models.PositionalImage(values...)
	return &img
}

func insertEvent(at uint64, after ...*models.RowImage) *models.ChangeEvent {
	rows := make([]models.RowChange, len(after))
	for i, a := range after {
		rows[i] = models.RowChange{After: a}
	}
	return &models.ChangeEvent{Op: models.OpInsert, Schema: "app", Table: sourceTable, Rows: rows, Position: pos(at)}
}

func updateEvent(at uint64, before, after *models.RowImage) *models.ChangeEvent {
	return &models.ChangeEvent{
		Op:       models.OpUpdate,
		Schema:   "app",
		Table:    sourceTable,
		Rows:     []models.RowChange{{Before: before, After: after}},
		Position: pos(at),
	}
}

func deleteEvent(at uint64, before ...*models.RowImage) *models.ChangeEvent {
	rows := make([]models.RowChange, len(before))
	for i, b := range before {
		rows[i] = models.RowChange{Before: b}
	}
	return &models.ChangeEvent{Op: models.OpDelete, Schema: "app", Table: sourceTable, Rows: rows, Position: pos(at)}
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

func checkClubAbsent(t *testing.T, db *sql.DB, id int) {
	t.Helper()
	var one int
	err := db.QueryRow(`SELECT 1 FROM clubs WHERE id = ?`, id).Scan(&one)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("club %d: expected no row, got err=%v", id, err)
	}
}

func checkSaved(t *testing.T, store *memStore, want ...models.LogPosition) {
	t.Helper()
	got := store.Saves()
	if len(got) != len(want) {
		t.Fatalf("saved positions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("save %d = %v, want %v", i, got[i], want[i])
		}
	}
}
