// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package quarantine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/binlogsync/internal/logging"
	"github.com/tomtom215/binlogsync/internal/metrics"
	"github.com/tomtom215/binlogsync/internal/models"
)

const keyPrefix = "q:"

// Reasons an entry was quarantined.
const (
	ReasonMissingKey  = "missing_key"
	ReasonApplyFailed = "apply_failed"
)

// entryNamespace scopes derived entry ids.
var entryNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("binlogsync.quarantine"))

var (
	// ErrClosed is returned by operations on a closed journal.
	ErrClosed = errors.New("quarantine journal is closed")

	// ErrNotFound is returned when an entry id does not exist.
	ErrNotFound = errors.New("quarantine entry not found")
)

// Entry is one quarantined row.
type Entry struct {
	ID              string             `json:"id"`
	Reason          string             `json:"reason"`
	Operation       models.Operation   `json:"operation"`
	Table           string             `json:"table"`
	Key             any                `json:"key,omitempty"`
	Record          map[string]any     `json:"record,omitempty"`
	Position        models.LogPosition `json:"position"`
	Row             int                `json:"row"`
	Error           string             `json:"error,omitempty"`
	DefaultsVersion string             `json:"defaults_version,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// Config configures the journal.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the journal in memory only. Used by tests.
	InMemory bool
}

// Journal is a BadgerDB-backed quarantine store. It is safe for
// concurrent use.
type Journal struct {
	db *badger.DB

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the journal.
func Open(cfg Config) (*Journal, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("quarantine path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = true
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	j := &Journal{db: db}
	count, err := j.Count(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	metrics.QuarantineEntries.Set(float64(count))

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Int("entries", count).
		Msg("Quarantine journal opened")
	return j, nil
}

func (j *Journal) checkOpen() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	return nil
}

// EntryID derives the id of e from its reason, operation, table, position
// and row index. A replayed row maps to the same id.
func EntryID(e Entry) string {
	name := fmt.Sprintf("%s|%s|%s|%s|%d", e.Reason, e.Operation, e.Table, e.Position, e.Row)
	return uuid.NewSHA1(entryNamespace, []byte(name)).String()
}

// Put stores e and returns the stored entry. An empty ID is derived with
// EntryID. Storing an id that already exists overwrites it but keeps the
// original creation time.
func (j *Journal) Put(ctx context.Context, e Entry) (Entry, error) {
	if err := j.checkOpen(); err != nil {
		return Entry{}, err
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	if e.ID == "" {
		e.ID = EntryID(e)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	key := []byte(keyPrefix + e.ID)
	replayed := false
	err := j.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var prev Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &prev)
			}); err == nil && !prev.CreatedAt.IsZero() {
				e.CreatedAt = prev.CreatedAt
			}
			replayed = true
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("write to BadgerDB: %w", err)
	}

	if replayed {
		logging.Ctx(ctx).Debug().
			Str("id", e.ID).
			Str("reason", e.Reason).
			Msg("Quarantine entry already recorded")
		return e, nil
	}

	metrics.RecordQuarantine(e.Reason)
	logging.Ctx(ctx).Warn().
		Str("id", e.ID).
		Str("reason", e.Reason).
		Str("table", e.Table).
		Interface("key", e.Key).
		Msg("Row quarantined")
	return e, nil
}

// Get returns the entry with the given id.
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	if err := j.checkOpen(); err != nil {
		return Entry{}, err
	}

	var e Entry
	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("read entry %s: %w", id, err)
	}
	return e, nil
}

// List returns up to limit entries, oldest first. A limit of zero or less
// returns every entry.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if err := j.checkOpen(); err != nil {
		return nil, err
	}

	entries := []Entry{}
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			var e Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("Failed to decode quarantine entry")
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate quarantine entries: %w", err)
	}

	// Ids are content hashes, so key order is not arrival order.
	sort.SliceStable(entries, func(a, b int) bool {
		ea, eb := entries[a], entries[b]
		if !ea.CreatedAt.Equal(eb.CreatedAt) {
			return ea.CreatedAt.Before(eb.CreatedAt)
		}
		if c := ea.Position.Compare(eb.Position); c != 0 {
			return c < 0
		}
		return ea.Row < eb.Row
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Count returns the number of entries.
func (j *Journal) Count(ctx context.Context) (int, error) {
	if err := j.checkOpen(); err != nil {
		return 0, err
	}

	count := 0
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count quarantine entries: %w", err)
	}
	return count, nil
}

// Delete removes the entry with the given id.
func (j *Journal) Delete(ctx context.Context, id string) error {
	if err := j.checkOpen(); err != nil {
		return err
	}

	key := []byte(keyPrefix + id)
	err := j.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}

	metrics.QuarantineEntries.Dec()
	logging.Ctx(ctx).Info().Str("id", id).Msg("Quarantine entry deleted")
	return nil
}

// Close closes the journal. It is safe to call more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	j.mu.Unlock()

	if err := j.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("Quarantine journal closed")
	return nil
}
