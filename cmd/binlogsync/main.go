// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/binlogsync/internal/api"
	"github.com/tomtom215/binlogsync/internal/binlog"
	"github.com/tomtom215/binlogsync/internal/config"
	"github.com/tomtom215/binlogsync/internal/database"
	"github.com/tomtom215/binlogsync/internal/logging"
	"github.com/tomtom215/binlogsync/internal/mapping"
	"github.com/tomtom215/binlogsync/internal/models"
	"github.com/tomtom215/binlogsync/internal/position"
	"github.com/tomtom215/binlogsync/internal/quarantine"
	"github.com/tomtom215/binlogsync/internal/reconcile"
	"github.com/tomtom215/binlogsync/internal/stream"
	"github.com/tomtom215/binlogsync/internal/supervisor"
	"github.com/tomtom215/binlogsync/internal/supervisor/services"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		os.Exit(issueToken(os.Args[2:], os.Stdout))
	}
	os.Exit(run())
}

//nolint:gocyclo // sequential startup steps
func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Fields: map[string]string{
			"service": "binlogsync",
			"replica": cfg.Source.Database + "." + cfg.Source.Table,
		},
		Output: os.Stderr,
	})

	logging.Info().
		Str("source", cfg.Source.Host).
		Str("schema", cfg.Source.Database).
		Str("table", cfg.Source.Table).
		Str("destination", cfg.Destination.Driver).
		Str("destination_table", cfg.Destination.Table).
		Str("defaults_version", cfg.Table.DefaultsVersion).
		Msg("Starting binlogsync")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Both ends must answer before anything is streamed.
	srcDB := database.SourceConfig(&cfg.Source)
	if err := database.Ping(ctx, srcDB, models.TargetSource); err != nil {
		logging.Error().Err(err).Msg("Source connectivity check failed")
		return 1
	}
	dstDB := database.DestinationConfig(&cfg.Destination)
	if err := database.Ping(ctx, dstDB, models.TargetDestination); err != nil {
		logging.Error().Err(err).Msg("Destination connectivity check failed")
		return 1
	}

	defaults, err := cfg.DefaultValueSet()
	if err != nil {
		logging.Error().Err(err).Msg("Invalid default value set")
		return 1
	}
	mapper, err := mapping.NewMapper(cfg.ColumnOrders())
	if err != nil {
		logging.Error().Err(err).Msg("Invalid column order")
		return 1
	}
	dialect, err := reconcile.DialectByName(cfg.Destination.Driver)
	if err != nil {
		logging.Error().Err(err).Msg("Invalid destination driver")
		return 1
	}

	src := binlog.New(binlog.ConfigFrom(&cfg.Source))
	logging.Info().Uint32("server_id", src.ServerID()).Msg("Binlog client configured")

	deps := stream.Deps{
		Source:    src,
		Positions: position.NewFileStore(cfg.Position.Path, cfg.InitialPosition()),
		Mapper:    mapper,
		Defaults:  defaults,
		OpenDestination: func(ctx context.Context) (stream.Destination, error) {
			db, err := database.Open(ctx, dstDB, models.TargetDestination)
			if err != nil {
				return nil, err
			}
			r, err := reconcile.New(db, dialect, cfg.Destination.Table, cfg.Table.KeyColumn)
			if err != nil {
				_ = db.Close()
				return nil, err
			}
			return r, nil
		},
	}

	var journal *quarantine.Journal
	if cfg.Quarantine.Enabled {
		journal, err = quarantine.Open(quarantine.Config{Path: cfg.Quarantine.Path})
		if err != nil {
			logging.Error().Err(err).Msg("Failed to open quarantine journal")
			return 1
		}
		defer func() {
			if err := journal.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing quarantine journal")
			}
		}()
		deps.Quarantine = journal
	}

	coordinator, err := stream.New(stream.Config{
		Schema:       cfg.Source.Database,
		Table:        cfg.Source.Table,
		ApplyTimeout: cfg.Destination.ApplyTimeout,
	}, deps)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create stream coordinator")
		return 1
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.FailureBackoff = cfg.Stream.FailureBackoff
	treeCfg.ShutdownTimeout = cfg.Stream.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return 1
	}

	// A fatal stream error stops the whole tree.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	streamSvc := services.NewStreamService(coordinator, services.StreamServiceConfig{
		MaxConsecutiveFailures: cfg.Stream.MaxConsecutiveFailures,
		FailureWindow:          cfg.Stream.FailureWindow,
		OnFatal: func(err error) {
			logging.Error().Err(err).Msg("Replication stopped")
			cancel()
		},
	})
	tree.AddStreamService(streamSvc)

	if cfg.Server.Enabled {
		var q api.QuarantineStore
		if journal != nil {
			q = journal
		}
		handler := api.NewHandler(coordinator, q)
		server := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           api.NewRouter(handler, api.NewMiddleware(api.MiddlewareConfigFrom(&cfg.Server))),
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	}

	logging.Info().Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if err := streamSvc.FatalError(); err != nil {
		logging.Error().Err(err).Msg("Exiting after fatal replication error")
		return 1
	}
	logging.Info().Msg("Binlogsync stopped")
	return 0
}
