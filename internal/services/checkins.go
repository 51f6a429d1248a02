// checkins.go
//
// Data access and schema compatibility layer for the wellness check-in service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of wellnessdb.
// wellnessdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// wellnessdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with wellnessdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"errors"
	"time"

	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/models"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/rs/zerolog/log"
)

// Invalidator marks the cached insights of a (user, date) stale.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string, date time.Time) (int, error)
}

// CheckinService ingests daily check-ins.
type CheckinService struct {
	a        adapter.Adapter
	table    *mapping.Table
	insights Invalidator
}

// NewCheckinService returns a service writing through a. insights may be nil.
func NewCheckinService(a adapter.Adapter, table *mapping.Table, insights Invalidator) *CheckinService {
	return &CheckinService{a: a, table: table, insights: insights}
}

// Ingest stores one check-in for userID. raw may hold any subset of the check-in
// fields; list fields take a single value or an array. Unrecognized keys are
// rejected before anything is written. The insight of the check-in's date is
// invalidated afterwards.
func (s *CheckinService) Ingest(ctx context.Context, userID string, raw map[string]any) (models.DailyCheckin, error) {
	if err := requireID("user_id", userID); err != nil {
		return models.DailyCheckin{}, err
	}
	if err := checkKeys(raw, s.table.IngestFields(mapping.DailyCheckins, "user_id")); err != nil {
		return models.DailyCheckin{}, err
	}

	if _, err := s.a.FindByID(ctx, mapping.Users, userID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return models.DailyCheckin{}, notFound("user", userID, types.ErrNotFound)
		}
		return models.DailyCheckin{}, err
	}

	fields := toFields(raw)
	fields["user_id"] = userID
	if _, ok := fields["date_submitted"]; !ok {
		fields["date_submitted"] = types.TruncateDay(time.Now())
	}

	rec, err := s.a.Create(ctx, mapping.DailyCheckins, fields)
	if err != nil {
		return models.DailyCheckin{}, err
	}
	checkin := models.CheckinFromRecord(rec)

	if s.insights != nil {
		if _, err := s.insights.Invalidate(ctx, userID, checkin.DateSubmitted.Time); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("failed to invalidate insight after check-in")
		}
	}

	log.Debug().Str("user_id", userID).Str("checkin_id", checkin.ID).Msg("check-in ingested")
	return checkin, nil
}
