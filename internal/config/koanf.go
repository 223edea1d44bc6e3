// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, first
// match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/binlogsync/config.yaml",
	"/etc/binlogsync/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Port:            3306,
			Flavor:          "mysql",
			Charset:         "utf8mb4",
			ServerID:        0, // random, chosen once per process
			ConnectTimeout:  10 * time.Second,
			HeartbeatPeriod: 30 * time.Second,
			ReadTimeout:     90 * time.Second,
		},
		Destination: DestinationConfig{
			Driver:          "starrocks",
			Port:            9030,
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  10 * time.Second,
			ApplyTimeout:    30 * time.Second,
		},
		Table: TableConfig{
			KeyColumn:       "id",
			DefaultsVersion: "v1",
		},
		Position: PositionConfig{
			Path: "logs/binlog_pos.txt",
		},
		Stream: StreamConfig{
			MaxConsecutiveFailures: 5,
			FailureWindow:          5 * time.Minute,
			FailureBackoff:         10 * time.Second,
			ShutdownTimeout:        30 * time.Second,
		},
		Quarantine: QuarantineConfig{
			Enabled: true,
			Path:    "data/quarantine",
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "127.0.0.1",
			Port:            9464,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,

			CORSOrigins:       []string{},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			AuthTokenTTL:      24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from three layers, later layers winning:
//  1. built-in defaults
//  2. an optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. mapped environment variables
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"table.columns",
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config
// paths. The MYSQL_* and STARROCKS_* names match the variables the
// deployment .env files already use.
var envMappings = map[string]string{
	// Source
	"mysql_host":             "source.host",
	"mysql_port":             "source.port",
	"mysql_user":             "source.user",
	"mysql_password":         "source.password",
	"mysql_db":               "source.database",
	"mysql_table":            "source.table",
	"mysql_flavor":           "source.flavor",
	"mysql_charset":          "source.charset",
	"mysql_server_id":        "source.server_id",
	"mysql_connect_timeout":  "source.connect_timeout",
	"mysql_heartbeat_period": "source.heartbeat_period",
	"mysql_read_timeout":     "source.read_timeout",
	"mysql_binlog_file":      "position.initial_file",
	"mysql_binlog_pos":       "position.initial_offset",
	"binlog_position_file":   "position.path",

	// Destination
	"destination_driver":     "destination.driver",
	"starrocks_host":         "destination.host",
	"starrocks_port":         "destination.port",
	"starrocks_user":         "destination.user",
	"starrocks_password":     "destination.password",
	"starrocks_db":           "destination.database",
	"starrocks_table":        "destination.table",
	"duckdb_path":            "destination.path",
	"destination_max_conns":  "destination.max_open_conns",
	"destination_idle_conns": "destination.max_idle_conns",
	"apply_timeout":          "destination.apply_timeout",

	// Table
	"table_key_column":       "table.key_column",
	"table_defaults_version": "table.defaults_version",
	"table_columns":          "table.columns",

	// Stream
	"stream_max_failures":    "stream.max_consecutive_failures",
	"stream_failure_window":  "stream.failure_window",
	"stream_failure_backoff": "stream.failure_backoff",
	"shutdown_timeout":       "stream.shutdown_timeout",

	// Quarantine
	"quarantine_enabled": "quarantine.enabled",
	"quarantine_path":    "quarantine.path",

	// Ops server
	"http_enabled":             "server.enabled",
	"http_host":                "server.host",
	"http_port":                "server.port",
	"http_cors_origins":        "server.cors_origins",
	"http_rate_limit_requests": "server.rate_limit_requests",
	"http_rate_limit_window":   "server.rate_limit_window",
	"http_rate_limit_disabled": "server.rate_limit_disabled",
	"http_auth_secret":         "server.auth_secret",
	"http_auth_token_ttl":      "server.auth_token_ttl",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable to a config path, or ""
// to ignore it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
