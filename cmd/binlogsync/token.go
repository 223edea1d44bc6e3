// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/binlogsync/internal/api"
	"github.com/tomtom215/binlogsync/internal/config"
	"github.com/tomtom215/binlogsync/internal/logging"
)

// issueToken prints an admin token for the ops server, signed with the
// configured server.auth_secret.
func issueToken(args []string, out io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}
	token, err := adminToken(&cfg.Server, args)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to issue ops token")
		return 1
	}
	fmt.Fprintln(out, token)
	return 0
}

func adminToken(cfg *config.ServerConfig, args []string) (string, error) {
	if cfg.AuthSecret == "" {
		return "", errors.New("server.auth_secret is not set")
	}
	subject := "ops"
	if len(args) > 0 && args[0] != "" {
		subject = args[0]
	}
	tokens, err := api.NewTokenManager(cfg.AuthSecret, cfg.AuthTokenTTL)
	if err != nil {
		return "", err
	}
	return tokens.GenerateToken(subject, api.RoleAdmin)
}
