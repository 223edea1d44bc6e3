// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

// Package validation wraps go-playground/validator v10 with a shared
// instance, config-path field names and readable messages.
//
//	type SourceConfig struct {
//	    Host string `koanf:"host" validate:"required"`
//	    Port int    `koanf:"port" validate:"min=1,max=65535"`
//	}
//
//	if err := validation.ValidateStruct(&cfg); err != nil {
//	    return fmt.Errorf("invalid configuration: %w", err)
//	}
//
// The custom "sqlident" rule accepts unquoted SQL identifiers.
package validation
