// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

/*
Package config loads binlogsync configuration with koanf.

Sources, lowest to highest precedence:

 1. built-in defaults (defaultConfig)
 2. a YAML file: $CONFIG_PATH, ./config.yaml, ./config.yml,
    /etc/binlogsync/config.yaml, /etc/binlogsync/config.yml
 3. environment variables listed in envMappings

Only mapped environment variables are read. The names follow the existing
deployment .env files:

	MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DB
	MYSQL_BINLOG_FILE, MYSQL_BINLOG_POS
	STARROCKS_HOST, STARROCKS_PORT, STARROCKS_USER, STARROCKS_PASSWORD, STARROCKS_DB

The destination schema (table.defaults) and the source column order
(table.columns) are lists and are normally kept in the YAML file; see
configs/config.example.yaml. TABLE_COLUMNS accepts a comma-separated list.

Load validates struct tags through internal/validation and then checks
cross-field rules in Validate, such as the key column being part of the
defaults.
*/
package config
