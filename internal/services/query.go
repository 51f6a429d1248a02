// query.go
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
	"strings"
	"time"

	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/aggregation"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/models"
	"github.com/localnerve/wellnessdb/internal/types"
)

// MaxListLimit caps ListCheckins.
const MaxListLimit = 500

// InsightSource returns the insight of a (user, date). It never fails.
type InsightSource interface {
	Daily(ctx context.Context, userID string, date time.Time) models.Insight
}

// DateRange is an inclusive range of days. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Metrics are the published derived rows of one user.
type Metrics struct {
	UserID string                `json:"user_id"`
	Daily  []models.DailyMetric  `json:"daily"`
	Weekly []models.WeeklyMetric `json:"weekly"`
}

// QueryService serves reads. It never triggers a metric refresh.
type QueryService struct {
	a        adapter.Adapter
	reader   *aggregation.Reader
	insights InsightSource
}

// NewQueryService returns a read service.
func NewQueryService(a adapter.Adapter, reader *aggregation.Reader, insights InsightSource) *QueryService {
	return &QueryService{a: a, reader: reader, insights: insights}
}

// ListCheckins returns up to limit raw check-ins of userID by date_submitted, newest
// first unless order is "asc". Several check-ins on one date are all returned.
func (s *QueryService) ListCheckins(ctx context.Context, userID string, limit int, order string) ([]models.DailyCheckin, error) {
	if err := requireID("user_id", userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	var desc bool
	switch strings.ToLower(order) {
	case "", "desc":
		desc = true
	case "asc":
	default:
		return nil, types.NewValidationError("order", "must be asc or desc")
	}

	records, err := s.a.FindMany(ctx, mapping.DailyCheckins,
		adapter.Eq{Field: "user_id", Value: userID},
		[]adapter.Order{
			{Field: "date_submitted", Desc: desc},
			{Field: "created_at", Desc: desc},
		},
		limit,
	)
	if err != nil {
		return nil, err
	}

	out := make([]models.DailyCheckin, len(records))
	for i, r := range records {
		out[i] = models.CheckinFromRecord(r)
	}
	return out, nil
}

// GetDailyInsight returns the insight of userID for date.
func (s *QueryService) GetDailyInsight(ctx context.Context, userID string, date time.Time) (models.Insight, error) {
	if err := requireID("user_id", userID); err != nil {
		return models.Insight{}, err
	}
	if date.IsZero() {
		return models.Insight{}, types.NewValidationError("date", "is required")
	}
	return s.insights.Daily(ctx, userID, date), nil
}

// GetMetrics returns the published daily rows in r and the weekly rows whose week
// overlaps r.
func (s *QueryService) GetMetrics(ctx context.Context, userID string, r DateRange) (Metrics, error) {
	if err := requireID("user_id", userID); err != nil {
		return Metrics{}, err
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return Metrics{}, types.NewValidationError("to", "must not be before from")
	}

	daily, err := s.reader.Daily(ctx, userID, r.From, r.To)
	if err != nil {
		return Metrics{}, err
	}

	weekFrom := r.From
	if !weekFrom.IsZero() {
		weekFrom = aggregation.WeekStart(weekFrom)
	}
	weekly, err := s.reader.Weekly(ctx, userID, weekFrom, r.To)
	if err != nil {
		return Metrics{}, err
	}

	if daily == nil {
		daily = []models.DailyMetric{}
	}
	if weekly == nil {
		weekly = []models.WeeklyMetric{}
	}
	return Metrics{UserID: userID, Daily: daily, Weekly: weekly}, nil
}
