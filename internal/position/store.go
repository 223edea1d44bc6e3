// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

// Package position persists the replication checkpoint.
//
// The checkpoint is a two-line text file: the binlog file name on the first
// line and the decimal offset on the second. Writes go to a temporary file
// in the same directory which is synced and renamed over the target, so a
// reader sees either the previous or the new position, never a mix. The
// directory is synced after the rename so the new entry survives a crash.
package position

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/tomtom215/binlogsync/internal/logging"
	"github.com/tomtom215/binlogsync/internal/models"
)

// ErrInvalidFormat is returned by Parse for content that is not a position.
var ErrInvalidFormat = errors.New("invalid position file format")

// FileStore keeps the last applied position in a file. It is the only
// writer of that file.
type FileStore struct {
	path    string
	initial models.LogPosition
	syncDir func(dir string) error
	mu      sync.Mutex
}

// NewFileStore creates a store at path. initial is returned by Load when
// no usable position has been persisted yet.
func NewFileStore(path string, initial models.LogPosition) *FileStore {
	return &FileStore{path: path, initial: initial, syncDir: syncDir}
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// Load returns the persisted position. A missing, unreadable or corrupt
// file is logged and the initial position is returned instead.
func (s *FileStore) Load() models.LogPosition {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info().
				Str("path", s.path).
				Str("position", s.initial.String()).
				Msg("No saved binlog position, starting from configured position")
		} else {
			logging.Warn().Err(err).
				Str("path", s.path).
				Str("position", s.initial.String()).
				Msg("Failed to read binlog position, starting from configured position")
		}
		return s.initial
	}

	pos, err := Parse(data)
	if err != nil {
		logging.Warn().Err(err).
			Str("path", s.path).
			Str("position", s.initial.String()).
			Msg("Saved binlog position is corrupt, starting from configured position")
		return s.initial
	}

	logging.Info().Str("position", pos.String()).Msg("Loaded saved binlog position")
	return pos
}

// Save atomically and durably replaces the persisted position.
func (s *FileStore) Save(pos models.LogPosition) error {
	if pos.IsZero() {
		return fmt.Errorf("save position: %w: empty file name", ErrInvalidFormat)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create position directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp position file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(Format(pos)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write position: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync position: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close position: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace position file: %w", err)
	}
	committed = true

	if err := s.syncDir(dir); err != nil {
		return fmt.Errorf("sync position directory: %w", err)
	}

	logging.Debug().Str("position", pos.String()).Msg("Saved binlog position")
	return nil
}

// Format renders a position in the two-line file format.
func Format(pos models.LogPosition) []byte {
	return []byte(pos.File + "\n" + strconv.FormatUint(pos.Offset, 10))
}

// Parse reads a position in the two-line file format. Surrounding
// whitespace and a trailing newline are tolerated.
func Parse(data []byte) (models.LogPosition, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	lines := make([]string, 0, 2)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return models.LogPosition{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(lines) != 2 {
		return models.LogPosition{}, fmt.Errorf("%w: want 2 lines, got %d", ErrInvalidFormat, len(lines))
	}

	offset, err := strconv.ParseUint(lines[1], 10, 64)
	if err != nil {
		return models.LogPosition{}, fmt.Errorf("%w: offset %q: %v", ErrInvalidFormat, lines[1], err)
	}
	return models.LogPosition{File: lines[0], Offset: offset}, nil
}
