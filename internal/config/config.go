// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/binlogsync/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Source      SourceConfig      `koanf:"source"`
	Destination DestinationConfig `koanf:"destination"`
	Table       TableConfig       `koanf:"table"`
	Position    PositionConfig    `koanf:"position"`
	Stream      StreamConfig      `koanf:"stream"`
	Quarantine  QuarantineConfig  `koanf:"quarantine"`
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// SourceConfig describes the MySQL server whose binlog is replicated.
type SourceConfig struct {
	Host     string `koanf:"host" validate:"required"`
	Port     int    `koanf:"port" validate:"min=1,max=65535"`
	User     string `koanf:"user" validate:"required"`
	Password string `koanf:"password"`

	// Database is the schema whose events are replicated. Events from other
	// schemas are skipped.
	Database string `koanf:"database" validate:"required"`

	// Table is the source table whose events are replicated.
	Table string `koanf:"table" validate:"required,sqlident"`

	Flavor  string `koanf:"flavor" validate:"oneof=mysql mariadb"`
	Charset string `koanf:"charset" validate:"required"`

	// ServerID is the replica id presented to the source. Zero picks a
	// random id in [100000, 999999] once per process; reconnects reuse it.
	ServerID uint32 `koanf:"server_id"`

	ConnectTimeout  time.Duration `koanf:"connect_timeout" validate:"gt=0"`
	HeartbeatPeriod time.Duration `koanf:"heartbeat_period"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
}

// DestinationConfig describes where rows are written.
type DestinationConfig struct {
	// Driver is starrocks, mysql or duckdb.
	Driver   string `koanf:"driver" validate:"oneof=starrocks mysql duckdb"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"min=0,max=65535"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
	Table    string `koanf:"table" validate:"required,sqlident"`

	// Path is the DuckDB database file. Empty means in-memory.
	Path string `koanf:"path"`

	MaxOpenConns    int           `koanf:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout" validate:"gt=0"`

	// ApplyTimeout bounds a single upsert or delete, fallback included.
	ApplyTimeout time.Duration `koanf:"apply_timeout" validate:"gt=0"`
}

// TableConfig describes the shape of the replicated table.
type TableConfig struct {
	// KeyColumn is the primary key in the destination.
	KeyColumn string `koanf:"key_column" validate:"required"`

	// DefaultsVersion labels the default set so log lines and quarantine
	// entries can be tied to the schema revision that produced them.
	DefaultsVersion string `koanf:"defaults_version" validate:"required"`

	// Columns is the source column order used when the binlog carries no
	// column names.
	Columns []string `koanf:"columns"`

	// Defaults lists every destination column with its default value, in
	// destination column order.
	Defaults []models.ColumnDefault `koanf:"defaults" validate:"required,min=1,dive"`
}

// PositionConfig controls the checkpoint file.
type PositionConfig struct {
	Path          string `koanf:"path" validate:"required"`
	InitialFile   string `koanf:"initial_file" validate:"required"`
	InitialOffset uint64 `koanf:"initial_offset"`
}

// StreamConfig controls restart behavior of the streaming service.
type StreamConfig struct {
	// MaxConsecutiveFailures is how many connectivity failures inside
	// FailureWindow are tolerated before the process gives up.
	MaxConsecutiveFailures uint32        `koanf:"max_consecutive_failures" validate:"min=1"`
	FailureWindow          time.Duration `koanf:"failure_window" validate:"gt=0"`
	FailureBackoff         time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout        time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// QuarantineConfig controls the journal of records that could not be applied.
type QuarantineConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=0,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists origins allowed to call the API from a browser.
	// Empty disables cross-origin access.
	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// AuthSecret signs the bearer tokens required by DELETE endpoints.
	// Empty leaves those endpoints disabled.
	AuthSecret   string        `koanf:"auth_secret"`
	AuthTokenTTL time.Duration `koanf:"auth_token_ttl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Addr returns host:port for the ops server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DefaultValueSet builds the immutable default set for the normalizer.
func (c *Config) DefaultValueSet() (*models.DefaultValueSet, error) {
	return models.NewDefaultValueSet(c.Table.DefaultsVersion, c.Table.KeyColumn, c.Table.Defaults)
}

// ColumnOrders returns the positional column order per source table. It is
// empty when no order is configured.
func (c *Config) ColumnOrders() map[string]models.ColumnOrder {
	if len(c.Table.Columns) == 0 {
		return map[string]models.ColumnOrder{}
	}
	order := make(models.ColumnOrder, len(c.Table.Columns))
	copy(order, c.Table.Columns)
	return map[string]models.ColumnOrder{c.Source.Table: order}
}

// InitialPosition is where streaming starts when no checkpoint exists.
func (c *Config) InitialPosition() models.LogPosition {
	return models.LogPosition{File: c.Position.InitialFile, Offset: c.Position.InitialOffset}
}
