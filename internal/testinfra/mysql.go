// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

//go:build integration

package testinfra

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMySQLImage is the server image used for binlog tests.
	DefaultMySQLImage = "mysql:8.0"

	// DefaultMySQLPassword is the root password of the test server.
	DefaultMySQLPassword = "binlogsync"

	// DefaultMySQLDatabase is created at startup.
	DefaultMySQLDatabase = "app"

	mysqlPort = "3306/tcp"
)

// MySQLContainer is a running MySQL server with row-based binary logging
// and full row metadata enabled.
type MySQLContainer struct {
	testcontainers.Container
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// MySQLOption configures the MySQL container.
type MySQLOption func(*mysqlConfig)

type mysqlConfig struct {
	image        string
	database     string
	rowMetadata  string
	startTimeout time.Duration
}

// WithMySQLImage sets a custom MySQL image.
func WithMySQLImage(image string) MySQLOption {
	return func(c *mysqlConfig) {
		c.image = image
	}
}

// WithMinimalRowMetadata starts the server with binlog_row_metadata=MINIMAL,
// so rows events carry no column names.
func WithMinimalRowMetadata() MySQLOption {
	return func(c *mysqlConfig) {
		c.rowMetadata = "MINIMAL"
	}
}

// WithMySQLStartTimeout sets the timeout for waiting for the server.
func WithMySQLStartTimeout(timeout time.Duration) MySQLOption {
	return func(c *mysqlConfig) {
		c.startTimeout = timeout
	}
}

// NewMySQLContainer creates and starts a MySQL server for testing.
//
//	mysql, err := testinfra.NewMySQLContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, mysql)
func NewMySQLContainer(ctx context.Context, opts ...MySQLOption) (*MySQLContainer, error) {
	cfg := &mysqlConfig{
		image:        DefaultMySQLImage,
		database:     DefaultMySQLDatabase,
		rowMetadata:  "FULL",
		startTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{mysqlPort},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": DefaultMySQLPassword,
			"MYSQL_DATABASE":      cfg.database,
			"TZ":                  "UTC",
		},
		Cmd: []string{
			"--server-id=1",
			"--log-bin=mysql-bin",
			"--binlog-format=ROW",
			"--binlog-row-image=FULL",
			"--binlog-row-metadata=" + cfg.rowMetadata,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(mysqlPort),
			wait.ForLog("port: 3306  MySQL Community Server"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create mysql container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, mysqlPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}
	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("parse mapped port %q: %w", mapped.Port(), err)
	}

	mc := &MySQLContainer{
		Container: container,
		Host:      host,
		Port:      port,
		User:      "root",
		Password:  DefaultMySQLPassword,
		Database:  cfg.database,
	}

	db, err := mc.Open()
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, err
	}
	defer db.Close()

	ready := func(ctx context.Context) bool { return db.PingContext(ctx) == nil }
	if err := WaitForReady(ctx, ready, cfg.startTimeout); err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("mysql not ready: %w", err)
	}

	return mc, nil
}

// DSN returns a go-sql-driver/mysql DSN for the test database.
func (c *MySQLContainer) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

// Open returns a connection pool to the test database.
func (c *MySQLContainer) Open() (*sql.DB, error) {
	db, err := sql.Open("mysql", c.DSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return db, nil
}

// MasterStatus returns the current binlog file and offset.
func (c *MySQLContainer) MasterStatus(ctx context.Context, db *sql.DB) (string, uint64, error) {
	rows, err := db.QueryContext(ctx, "SHOW MASTER STATUS")
	if err != nil {
		return "", 0, fmt.Errorf("show master status: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", 0, err
	}
	if !rows.Next() {
		return "", 0, fmt.Errorf("binary logging is disabled")
	}

	var file string
	var offset uint64
	dest := make([]any, len(cols))
	dest[0] = &file
	dest[1] = &offset
	for i := 2; i < len(dest); i++ {
		dest[i] = new(sql.RawBytes)
	}
	if err := rows.Scan(dest...); err != nil {
		return "", 0, fmt.Errorf("scan master status: %w", err)
	}
	return file, offset, rows.Err()
}
