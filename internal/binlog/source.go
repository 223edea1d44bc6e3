// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package binlog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	gomysql "github.com/go-mysql-org/go-mysql/mysql"
	"github.com/go-mysql-org/go-mysql/replication"

	"github.com/tomtom215/binlogsync/internal/config"
	"github.com/tomtom215/binlogsync/internal/logging"
	"github.com/tomtom215/binlogsync/internal/metrics"
	"github.com/tomtom215/binlogsync/internal/models"
)

// ErrNotOpen is returned by Next before Open succeeds or after Close.
var ErrNotOpen = errors.New("binlog source is not open")

// Config holds the replica connection settings.
type Config struct {
	Host     string
	Port     uint16
	User     string
	Password string
	Flavor   string
	Charset  string

	// ServerID must be unique among the server's replicas. Zero picks a
	// random id in [100000, 999999].
	ServerID uint32

	// Schema and Table select the events to emit. An empty schema matches
	// any schema.
	Schema string
	Table  string

	HeartbeatPeriod time.Duration
	ReadTimeout     time.Duration
}

// ConfigFrom builds a source configuration from the loaded settings.
func ConfigFrom(cfg *config.SourceConfig) Config {
	return Config{
		Host:            cfg.Host,
		Port:            uint16(cfg.Port), //nolint:gosec // validated to 1-65535
		User:            cfg.User,
		Password:        cfg.Password,
		Flavor:          cfg.Flavor,
		Charset:         cfg.Charset,
		ServerID:        cfg.ServerID,
		Schema:          cfg.Database,
		Table:           cfg.Table,
		HeartbeatPeriod: cfg.HeartbeatPeriod,
		ReadTimeout:     cfg.ReadTimeout,
	}
}

// Source streams row events for one table. It is not safe for concurrent
// use except for Close, which may be called from another goroutine to
// unblock Next.
type Source struct {
	cfg      Config
	serverID uint32

	mu       sync.Mutex
	syncer   *replication.BinlogSyncer
	streamer *replication.BinlogStreamer
	tracker  positionTracker
}

// New creates an unopened source.
func New(cfg Config) *Source {
	id := cfg.ServerID
	if id == 0 {
		id = uint32(100000 + rand.IntN(900000)) //nolint:gosec // replica id, not a secret
	}
	if cfg.Flavor == "" {
		cfg.Flavor = gomysql.MySQLFlavor
	}
	return &Source{cfg: cfg, serverID: id}
}

// ServerID returns the replica server id used when registering.
func (s *Source) ServerID() uint32 {
	return s.serverID
}

// syncerConfig is the replica registration used by every Open. The server
// id is fixed for the life of the Source.
func (s *Source) syncerConfig() replication.BinlogSyncerConfig {
	return replication.BinlogSyncerConfig{
		ServerID:         s.serverID,
		Flavor:           s.cfg.Flavor,
		Host:             s.cfg.Host,
		Port:             s.cfg.Port,
		User:             s.cfg.User,
		Password:         s.cfg.Password,
		Charset:          s.cfg.Charset,
		HeartbeatPeriod:  s.cfg.HeartbeatPeriod,
		ReadTimeout:      s.cfg.ReadTimeout,
		DisableRetrySync: true,
	}
}

// Open registers as a replica and starts streaming at pos.
func (s *Source) Open(ctx context.Context, pos models.LogPosition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pos.Offset > uint64(^uint32(0)) {
		return fmt.Errorf("binlog offset %d exceeds 32 bits", pos.Offset)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.syncer != nil {
		s.syncer.Close()
		s.syncer = nil
		s.streamer = nil
	}

	syncer := replication.NewBinlogSyncer(s.syncerConfig())

	streamer, err := syncer.StartSync(gomysql.Position{Name: pos.File, Pos: uint32(pos.Offset)})
	if err != nil {
		syncer.Close()
		return &models.ConnectivityError{Target: models.TargetSource, Err: fmt.Errorf("start binlog sync: %w", err)}
	}

	s.syncer = syncer
	s.streamer = streamer
	s.tracker.reset(pos)

	logging.Info().
		Str("host", s.cfg.Host).
		Uint16("port", s.cfg.Port).
		Uint32("server_id", s.serverID).
		Str("position", pos.String()).
		Str("table", s.cfg.Table).
		Msg("Binlog stream opened")
	return nil
}

// Next blocks until the next matching rows event is read. It returns
// ctx.Err() when ctx is done and a *models.ConnectivityError when the
// stream breaks.
func (s *Source) Next(ctx context.Context) (*models.ChangeEvent, error) {
	s.mu.Lock()
	streamer := s.streamer
	s.mu.Unlock()
	if streamer == nil {
		return nil, ErrNotOpen
	}

	for {
		ev, err := streamer.GetEvent(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &models.ConnectivityError{Target: models.TargetSource, Err: err}
		}

		change, err := s.handle(ev)
		if err != nil {
			return nil, err
		}
		if change != nil {
			return change, nil
		}
	}
}

// handle updates the position tracker and converts rows events. It
// returns nil for events that produce no change.
func (s *Source) handle(ev *replication.BinlogEvent) (*models.ChangeEvent, error) {
	switch e := ev.Event.(type) {
	case *replication.RotateEvent:
		s.tracker.rotate(string(e.NextLogName), e.Position)
		logging.Debug().Str("position", s.tracker.position().String()).Msg("Binlog rotated")
		return nil, nil

	case *replication.XIDEvent:
		s.tracker.commit(ev.Header.LogPos)
		return nil, nil

	case *replication.QueryEvent:
		if isCommit(e.Query) {
			s.tracker.commit(ev.Header.LogPos)
		}
		return nil, nil

	case *replication.RowsEvent:
		op, ok := operationFor(ev.Header.EventType)
		if !ok || e.Table == nil {
			return nil, nil
		}
		schema := string(e.Table.Schema)
		table := string(e.Table.Table)
		if (s.cfg.Schema != "" && schema != s.cfg.Schema) || table != s.cfg.Table {
			metrics.EventsFiltered.Inc()
			return nil, nil
		}

		rows, err := convertRows(op, metaFor(e.Table), e.Rows)
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s at %s: %w", schema, table, s.tracker.position(), err)
		}
		return &models.ChangeEvent{
			Op:        op,
			Schema:    schema,
			Table:     table,
			Rows:      rows,
			Position:  s.tracker.position(),
			Timestamp: time.Unix(int64(ev.Header.Timestamp), 0),
		}, nil
	}
	return nil, nil
}

// Close stops the stream. It is safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncer == nil {
		return nil
	}
	s.syncer.Close()
	s.syncer = nil
	s.streamer = nil
	logging.Info().Str("position", s.tracker.position().String()).Msg("Binlog stream closed")
	return nil
}
