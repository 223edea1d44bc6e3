// Binlogsync - MySQL binlog replication into StarRocks
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/binlogsync

package mapping

import "github.com/tomtom215/binlogsync/internal/models"

// Normalize overlays the non-null values of rec on a copy of defaults.
// Columns unknown to the defaults are dropped; the result always has
// exactly the defaults' columns.
func Normalize(rec models.Record, defaults *models.DefaultValueSet) *models.TargetRecord {
	out := models.NewTargetRecord(defaults)
	for name, value := range rec {
		if value == nil {
			continue
		}
		out.Set(name, value)
	}
	return out
}
