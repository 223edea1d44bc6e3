// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

//go:build integration

package binlog

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/binlogsync/internal/models"
	"github.com/tomtom215/binlogsync/internal/testinfra"
)

func startSource(t *testing.T, ctx context.Context, opts ...testinfra.MySQLOption) (*testinfra.MySQLContainer, *Source, func(string)) {
	t.Helper()
	testinfra.SkipIfNoDocker(t)

	mc, err := testinfra.NewMySQLContainer(ctx, opts...)
	if err != nil {
		t.Fatalf("NewMySQLContainer() error = %v", err)
	}
	t.Cleanup(func() { testinfra.CleanupContainer(t, context.Background(), mc) })

	db, err := mc.Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	exec := func(q string) {
		t.Helper()
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}
	exec("CREATE TABLE fa_clubs (id INT PRIMARY KEY, name VARCHAR(64), status TINYINT)")
	exec("CREATE TABLE members (id INT PRIMARY KEY)")

	file, offset, err := mc.MasterStatus(ctx, db)
	if err != nil {
		t.Fatalf("MasterStatus() error = %v", err)
	}

	src := New(Config{
		Host:     mc.Host,
		Port:     uint16(mc.Port),
		User:     mc.User,
		Password: mc.Password,
		Schema:   mc.Database,
		Table:    "fa_clubs",
	})
	if err := src.Open(ctx, models.LogPosition{File: file, Offset: offset}); err != nil {
		t.Fatalf("Source.Open() error = %v", err)
	}
	t.Cleanup(func() { src.Close() })

	return mc, src, exec
}

func nextEvent(t *testing.T, ctx context.Context, src *Source) *models.ChangeEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	ev, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	return ev
}

func TestSource_StreamsNamedRows(t *testing.T) {
	ctx := context.Background()
	_, src, exec := startSource(t, ctx)

	exec("INSERT INTO members VALUES (1)")
	exec("INSERT INTO fa_clubs VALUES (1, 'Acme', 1)")
	exec("UPDATE fa_clubs SET status = 2 WHERE id = 1")
	exec("DELETE FROM fa_clubs WHERE id = 1")

	ins := nextEvent(t, ctx, src)
	if ins.Op != models.OpInsert || ins.Table != "fa_clubs" {
		t.Fatalf("first event = %s %s, want insert fa_clubs", ins.Op, ins.Table)
	}
	if got := ins.Rows[0].After.Named["name"]; got != "Acme" {
		t.Errorf("name = %v, want Acme", got)
	}

	upd := nextEvent(t, ctx, src)
	if upd.Op != models.OpUpdate {
		t.Fatalf("second event = %s, want update", upd.Op)
	}
	if upd.Rows[0].Before == nil || upd.Rows[0].After == nil {
		t.Fatal("update must carry both images")
	}
	if ins.Position.Compare(upd.Position) >= 0 {
		t.Errorf("positions did not advance: %v then %v", ins.Position, upd.Position)
	}

	del := nextEvent(t, ctx, src)
	if del.Op != models.OpDelete || del.Rows[0].Before == nil {
		t.Fatalf("third event = %+v, want delete with before image", del)
	}
}

func TestSource_MinimalMetadataIsPositional(t *testing.T) {
	ctx := context.Background()
	_, src, exec := startSource(t, ctx, testinfra.WithMinimalRowMetadata())

	exec("INSERT INTO fa_clubs VALUES (5, 'Beta', 3)")

	ev := nextEvent(t, ctx, src)
	img := ev.Rows[0].After
	if !img.IsPositional() {
		t.Fatalf("expected positional image, got %+v", img)
	}
	if len(img.Values) != 3 || img.Values[1] != "Beta" {
		t.Errorf("values = %v", img.Values)
	}
}

func TestSource_NextHonoursContext(t *testing.T) {
	ctx := context.Background()
	_, src, _ := startSource(t, ctx)

	cctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if _, err := src.Next(cctx); err == nil {
		t.Error("expected error when no events arrive before deadline")
	}
}
