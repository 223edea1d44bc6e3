// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package mapping

import (
	"testing"

	"github.com/tomtom215/binlogsync/internal/models"
)

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

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         models.Record
		want       map[string]any
		keyPresent bool
	}{
		{
			name:       "key only keeps defaults",
			in:         models.Record{"id": 9},
			want:       map[string]any{"id": 9, "name": "", "status": 2},
			keyPresent: true,
		},
		{
			name:       "null does not override",
			in:         models.Record{"id": 3, "name": nil, "status": 5},
			want:       map[string]any{"id": 3, "name": "", "status": 5},
			keyPresent: true,
		},
		{
			name:       "unknown keys dropped",
			in:         models.Record{"id": 4, "downloadLimit": 1000},
			want:       map[string]any{"id": 4, "name": "", "status": 2},
			keyPresent: true,
		},
		{
			name:       "missing key",
			in:         models.Record{"name": "orphan"},
			want:       map[string]any{"id": 0, "name": "orphan", "status": 2},
			keyPresent: false,
		},
		{
			name:       "null key",
			in:         models.Record{"id": nil},
			want:       map[string]any{"id": 0, "name": "", "status": 2},
			keyPresent: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := Normalize(tt.in, clubDefaults(t))
			got := out.Map()
			if len(got) != len(tt.want) {
				t.Fatalf("got %d columns, want %d", len(got), len(tt.want))
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
			if out.KeyPresent() != tt.keyPresent {
				t.Errorf("KeyPresent() = %v, want %v", out.KeyPresent(), tt.keyPresent)
			}
		})
	}
}

func TestNormalize_ColumnOrderFollowsDefaults(t *testing.T) {
	t.Parallel()

	out := Normalize(models.Record{"status": 1, "name": "Acme", "id": 7}, clubDefaults(t))
	cols := out.Columns()
	vals := out.Values()
	want := []any{7, "Acme", 1}
	for i, c := range []string{"id", "name", "status"} {
		if cols[i] != c {
			t.Errorf("column %d = %s, want %s", i, cols[i], c)
		}
		if vals[i] != want[i] {
			t.Errorf("value %d = %v, want %v", i, vals[i], want[i])
		}
	}
}
