// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package models

import "testing"

func TestLogPosition_Compare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b LogPosition
		want int
	}{
		{"same file earlier offset", LogPosition{"mysql-bin.000001", 4}, LogPosition{"mysql-bin.000001", 120}, -1},
		{"same file later offset", LogPosition{"mysql-bin.000001", 900}, LogPosition{"mysql-bin.000001", 120}, 1},
		{"identical", LogPosition{"mysql-bin.000001", 120}, LogPosition{"mysql-bin.000001", 120}, 0},
		{"next file wins over offset", LogPosition{"mysql-bin.000002", 4}, LogPosition{"mysql-bin.000001", 99999}, 1},
		{"numeric not lexical", LogPosition{"mysql-bin.9", 4}, LogPosition{"mysql-bin.10", 4}, -1},
		{"no suffix falls back to lexical", LogPosition{"alpha", 4}, LogPosition{"beta", 4}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestLogPosition_StringAndZero(t *testing.T) {
	t.Parallel()

	pos := LogPosition{File: "mysql-bin.000003", Offset: 1543}
	if pos.String() != "mysql-bin.000003:1543" {
		t.Errorf("String() = %q", pos.String())
	}
	if pos.IsZero() {
		t.Error("expected non-zero position")
	}
	if !(LogPosition{}).IsZero() {
		t.Error("expected empty position to be zero")
	}
	if pos.Compare(LogPosition{File: "mysql-bin.000004", Offset: 4}) >= 0 {
		t.Error("expected position in earlier file to be before")
	}
}
