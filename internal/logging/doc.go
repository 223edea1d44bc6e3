// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

/*
Package logging provides the process-wide zerolog logger.

Initialize once from main with the configured level and format:

	logging.Init(logging.Config{Level: "info", Format: "json", Timestamp: true})

Log through the package helpers or, inside request or event handling, through
Ctx so correlation and event fields are attached:

	logging.Info().Str("position", pos.String()).Msg("Streaming started")
	logging.Ctx(ctx).Error().Err(err).Msg("Upsert failed on both paths")

Always terminate chains with Msg or Send; an unterminated event is dropped.

SlogHandler bridges slog to zerolog for libraries that only accept an
*slog.Logger, such as sutureslog.
*/
package logging
