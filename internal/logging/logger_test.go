// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("position", "mysql-bin.000001:4").Msg("Streaming started")
	Debug().Msg("debug line")

	output := buf.String()
	if !strings.Contains(output, "Streaming started") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, `"position":"mysql-bin.000001:4"`) {
		t.Errorf("expected position field, got: %s", output)
	}
	if !strings.Contains(output, "debug line") {
		t.Errorf("expected debug line at debug level, got: %s", output)
	}
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("hidden")
	Warn().Msg("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("info line should be filtered at warn: %s", output)
	}
	if !strings.Contains(output, "shown") {
		t.Errorf("warn line missing: %s", output)
	}
	if !IsLevelEnabled(zerolog.ErrorLevel) || IsLevelEnabled(zerolog.InfoLevel) {
		t.Error("IsLevelEnabled disagrees with configured level")
	}
}

func TestInit_StaticFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{
		Level:  "info",
		Output: &buf,
		Fields: map[string]string{"replica": "club_db.fa_clubs", "service": "binlogsync"},
	})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("tagged")
	output := buf.String()
	if !strings.Contains(output, `"replica":"club_db.fa_clubs"`) || !strings.Contains(output, `"service":"binlogsync"`) {
		t.Errorf("static fields missing: %s", output)
	}
}

func TestInit_Console(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "console", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("console line")
	if strings.Contains(buf.String(), `"message"`) {
		t.Errorf("console format should not emit JSON: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	l := WithComponent("binlog")
	l.Info().Msg("connected")
	if !strings.Contains(buf.String(), `"component":"binlog"`) {
		t.Errorf("expected component field, got: %s", buf.String())
	}
}
