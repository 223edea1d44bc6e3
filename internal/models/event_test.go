// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package models

import (
	"errors"
	"testing"
)

func TestChangeEvent_Validate(t *testing.T) {
	t.Parallel()

	img := PositionalImage(1)
	tests := []struct {
		name    string
		event   ChangeEvent
		wantErr bool
	}{
		{"insert ok", ChangeEvent{Op: OpInsert, Rows: []RowChange{{After: &img}}}, false},
		{"insert without after", ChangeEvent{Op: OpInsert, Rows: []RowChange{{Before: &img}}}, true},
		{"update ok", ChangeEvent{Op: OpUpdate, Rows: []RowChange{{Before: &img, After: &img}}}, false},
		{"update without after", ChangeEvent{Op: OpUpdate, Rows: []RowChange{{Before: &img}}}, true},
		{"delete ok", ChangeEvent{Op: OpDelete, Rows: []RowChange{{Before: &img}}}, false},
		{"delete without before", ChangeEvent{Op: OpDelete, Rows: []RowChange{{After: &img}}}, true},
		{"unknown op", ChangeEvent{Op: "truncate"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedEvent) {
				t.Errorf("expected ErrMalformedEvent, got %v", err)
			}
		})
	}
}

func TestChangeEvent_Matches(t *testing.T) {
	t.Parallel()

	ev := ChangeEvent{Schema: "club", Table: "fa_clubs"}
	if !ev.Matches("club", "fa_clubs") {
		t.Error("expected match")
	}
	if !ev.Matches("", "fa_clubs") {
		t.Error("expected match with empty schema filter")
	}
	if ev.Matches("other", "fa_clubs") {
		t.Error("unexpected match on schema")
	}
	if ev.Matches("club", "fa_users") {
		t.Error("unexpected match on table")
	}
}
