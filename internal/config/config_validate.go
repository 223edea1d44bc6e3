// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package config

import (
	"errors"
	"fmt"

	"github.com/tomtom215/binlogsync/internal/models"
	"github.com/tomtom215/binlogsync/internal/validation"
)

// minAuthSecretLength matches the token signer's minimum.
const minAuthSecretLength = 32

// Validate checks field rules and the cross-field constraints tags cannot
// express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateDestination(); err != nil {
		return err
	}
	if err := c.validateTable(); err != nil {
		return err
	}
	if err := c.validateQuarantine(); err != nil {
		return err
	}
	return c.validateServer()
}

func (c *Config) validateDestination() error {
	d := c.Destination
	if d.Driver == "duckdb" {
		return nil
	}
	if d.Host == "" {
		return fmt.Errorf("destination.host is required for driver %s (STARROCKS_HOST)", d.Driver)
	}
	if d.Port == 0 {
		return fmt.Errorf("destination.port is required for driver %s (STARROCKS_PORT)", d.Driver)
	}
	if d.User == "" {
		return fmt.Errorf("destination.user is required for driver %s (STARROCKS_USER)", d.Driver)
	}
	if d.Database == "" {
		return fmt.Errorf("destination.database is required for driver %s (STARROCKS_DB)", d.Driver)
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("destination.max_idle_conns (%d) cannot exceed destination.max_open_conns (%d)",
			d.MaxIdleConns, d.MaxOpenConns)
	}
	return nil
}

// validateTable checks that the defaults form a valid set containing the
// key, and that a configured source column order is usable.
func (c *Config) validateTable() error {
	if _, err := c.DefaultValueSet(); err != nil {
		return fmt.Errorf("table.defaults: %w", err)
	}

	if len(c.Table.Columns) == 0 {
		return nil
	}
	order := models.ColumnOrder(c.Table.Columns)
	if err := order.Validate(); err != nil {
		return fmt.Errorf("table.columns: %w", err)
	}
	if !order.Contains(c.Table.KeyColumn) {
		return fmt.Errorf("table.columns does not contain key column %q", c.Table.KeyColumn)
	}
	return nil
}

func (c *Config) validateQuarantine() error {
	if c.Quarantine.Enabled && c.Quarantine.Path == "" {
		return errors.New("quarantine.path is required when quarantine is enabled")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Enabled && c.Server.Port == 0 {
		return errors.New("server.port is required when the ops server is enabled")
	}
	if c.Server.Enabled && !c.Server.RateLimitDisabled &&
		(c.Server.RateLimitRequests == 0 || c.Server.RateLimitWindow <= 0) {
		return errors.New("server.rate_limit_requests and server.rate_limit_window are required unless rate limiting is disabled")
	}
	if c.Server.AuthSecret != "" && len(c.Server.AuthSecret) < minAuthSecretLength {
		return fmt.Errorf("server.auth_secret must be at least %d characters", minAuthSecretLength)
	}
	return nil
}
