// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package models

import (
	"strconv"
	"strings"
)

// LogPosition identifies a point in the source change log.
// File is the binlog file name (e.g. mysql-bin.000042), Offset the byte
// position inside it at which the next event starts.
type LogPosition struct {
	File   string `json:"file"`
	Offset uint64 `json:"offset"`
}

// IsZero reports whether the position carries no file name.
func (p LogPosition) IsZero() bool {
	return p.File == ""
}

// String renders the position as "file:offset".
func (p LogPosition) String() string {
	return p.File + ":" + strconv.FormatUint(p.Offset, 10)
}

// Compare orders two positions. It returns -1 when p is earlier than o,
// 0 when they are equal and +1 when p is later.
//
// Offsets are only comparable inside one file. Across files the numeric
// suffix of the file name decides (mysql-bin.000010 is later than
// mysql-bin.000009); names without a numeric suffix fall back to a
// lexical comparison.
func (p LogPosition) Compare(o LogPosition) int {
	if p.File == o.File {
		switch {
		case p.Offset < o.Offset:
			return -1
		case p.Offset > o.Offset:
			return 1
		default:
			return 0
		}
	}

	pseq, pok := fileSequence(p.File)
	oseq, ook := fileSequence(o.File)
	if pok && ook && pseq != oseq {
		if pseq < oseq {
			return -1
		}
		return 1
	}

	if p.File < o.File {
		return -1
	}
	return 1
}

// Sequence returns the numeric suffix of the file name, if it has one.
func (p LogPosition) Sequence() (uint64, bool) {
	return fileSequence(p.File)
}

// fileSequence extracts the numeric extension of a binlog file name.
func fileSequence(name string) (uint64, bool) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return 0, false
	}
	seq, err := strconv.ParseUint(name[idx+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}
