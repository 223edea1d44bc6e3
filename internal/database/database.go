// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/go-sql-driver/mysql"

	"github.com/tomtom215/binlogsync/internal/config"
	"github.com/tomtom215/binlogsync/internal/logging"
	"github.com/tomtom215/binlogsync/internal/models"
)

// Driver names accepted in Config.Driver.
const (
	DriverStarRocks = "starrocks"
	DriverMySQL     = "mysql"
	DriverDuckDB    = "duckdb"
)

// duckdbOptions disables extension auto-install so opening never reaches
// the network.
const duckdbOptions = "autoinstall_known_extensions=false&autoload_known_extensions=false"

// Config describes one database/sql connection pool.
type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Charset  string

	// Path is the DuckDB file; empty opens an in-memory database.
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// DestinationConfig maps the destination section to a pool config.
func DestinationConfig(c *config.DestinationConfig) Config {
	return Config{
		Driver:          c.Driver,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Database,
		Charset:         "utf8mb4",
		Path:            c.Path,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnectTimeout:  c.ConnectTimeout,
		ReadTimeout:     c.ApplyTimeout,
		WriteTimeout:    c.ApplyTimeout,
	}
}

// SourceConfig maps the source section to a pool config used for the
// startup connectivity check.
func SourceConfig(c *config.SourceConfig) Config {
	return Config{
		Driver:         DriverMySQL,
		Host:           c.Host,
		Port:           c.Port,
		User:           c.User,
		Password:       c.Password,
		Database:       c.Database,
		Charset:        c.Charset,
		MaxOpenConns:   1,
		MaxIdleConns:   1,
		ConnectTimeout: c.ConnectTimeout,
	}
}

// DSN returns the database/sql driver name and data source name.
func DSN(cfg Config) (driverName, dsn string, err error) {
	switch cfg.Driver {
	case DriverDuckDB:
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		return "duckdb", path + "?" + duckdbOptions, nil

	case DriverStarRocks, DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Database
		mc.Timeout = cfg.ConnectTimeout
		mc.ReadTimeout = cfg.ReadTimeout
		mc.WriteTimeout = cfg.WriteTimeout
		charset := cfg.Charset
		if charset == "" {
			charset = "utf8mb4"
		}
		mc.Params = map[string]string{"charset": charset}
		// StarRocks has limited server-side prepared statement support, so
		// arguments are interpolated client side.
		mc.InterpolateParams = cfg.Driver == DriverStarRocks
		return "mysql", mc.FormatDSN(), nil

	default:
		return "", "", fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// Open creates a pool and verifies it with a ping. A ping failure is
// reported as a *models.ConnectivityError for target.
func Open(ctx context.Context, cfg Config, target string) (*sql.DB, error) {
	driverName, dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverDuckDB && cfg.Path != "" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}
	configurePool(db, cfg)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		closeQuietly(db)
		return nil, &models.ConnectivityError{Target: target, Err: err}
	}

	logging.Info().
		Str("target", target).
		Str("driver", cfg.Driver).
		Str("endpoint", endpoint(cfg)).
		Msg("Database connection established")
	return db, nil
}

// Ping opens a pool, pings it and closes it again.
func Ping(ctx context.Context, cfg Config, target string) error {
	db, err := Open(ctx, cfg, target)
	if err != nil {
		return err
	}
	closeWithLog(db, target+" ping")
	return nil
}

func configurePool(db *sql.DB, cfg Config) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
}

func endpoint(cfg Config) string {
	if cfg.Driver == DriverDuckDB {
		if cfg.Path == "" {
			return ":memory:"
		}
		return cfg.Path
	}
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) + "/" + cfg.Database
}
