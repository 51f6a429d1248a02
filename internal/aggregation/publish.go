// publish.go
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

package aggregation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/models"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/rs/zerolog/log"
)

// Kind names a derived metric set.
type Kind string

const (
	Daily  Kind = "daily"
	Weekly Kind = "weekly"
)

func (k Kind) entity() mapping.Entity {
	if k == Weekly {
		return mapping.WeeklyMetrics
	}
	return mapping.DailyMetrics
}

// newBuildID returns a time-ordered build identifier.
func newBuildID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// publisher writes a complete build of one user's rows and then flips the user's
// publication pointer to it. Readers follow the pointer, so they see either the old
// build or the new one, never a mix.
type publisher struct {
	a   adapter.Adapter
	now func() time.Time
}

// publish returns the new build ID.
func (p *publisher) publish(ctx context.Context, userID string, kind Kind, rows []mapping.Fields) (string, error) {
	build := newBuildID()
	entity := kind.entity()
	logger := log.With().Str("user_id", userID).Str("kind", string(kind)).Str("build_id", build).Logger()

	for _, row := range rows {
		row = row.Clone()
		row["user_id"] = userID
		row["build_id"] = build
		if _, err := p.a.Create(ctx, entity, row); err != nil {
			p.discard(ctx, userID, entity, build)
			return "", fmt.Errorf("write %s build: %w", kind, err)
		}
	}

	previous, err := p.flip(ctx, userID, kind, build)
	if err != nil {
		p.discard(ctx, userID, entity, build)
		return "", fmt.Errorf("publish %s build: %w", kind, err)
	}

	if previous != "" && previous != build {
		p.discard(ctx, userID, entity, previous)
	}
	logger.Debug().Int("rows", len(rows)).Str("previous", previous).Msg("published metric build")
	return build, nil
}

// flip points the (user, kind) publication at build and returns the build it replaced.
func (p *publisher) flip(ctx context.Context, userID string, kind Kind, build string) (string, error) {
	fields := mapping.Fields{"build_id": build, "published_at": p.now()}

	for attempt := 0; attempt < 2; attempt++ {
		current, err := findPublication(ctx, p.a, userID, kind)
		switch {
		case err == nil:
			if _, err := p.a.Update(ctx, mapping.MetricPublications, current.ID, fields); err != nil {
				return "", err
			}
			return current.BuildID, nil

		case errors.Is(err, types.ErrNotFound):
			create := fields.Clone()
			create["user_id"] = userID
			create["kind"] = string(kind)
			_, err := p.a.Create(ctx, mapping.MetricPublications, create)
			if err == nil {
				return "", nil
			}
			// Another refresh created the pointer first; update it instead.
			if !errors.Is(err, types.ErrConflict) {
				return "", err
			}

		default:
			return "", err
		}
	}
	return "", fmt.Errorf("%w: publication pointer for %s/%s", types.ErrConflict, userID, kind)
}

// discard deletes the rows of a build. It runs even when ctx is done and only logs
// failures: an orphaned build is invisible to readers.
func (p *publisher) discard(ctx context.Context, userID string, entity mapping.Entity, build string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	n, err := adapter.DeleteMatching(ctx, p.a, entity, adapter.And{
		adapter.Eq{Field: "user_id", Value: userID},
		adapter.Eq{Field: "build_id", Value: build},
	})
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("entity", string(entity)).Str("build_id", build).
			Msg("failed to delete metric build")
		return
	}
	log.Debug().Int64("rows", n).Str("user_id", userID).Str("build_id", build).Msg("deleted metric build")
}

func findPublication(ctx context.Context, a adapter.Adapter, userID string, kind Kind) (models.MetricPublication, error) {
	rec, err := a.FindOne(ctx, mapping.MetricPublications, adapter.And{
		adapter.Eq{Field: "user_id", Value: userID},
		adapter.Eq{Field: "kind", Value: string(kind)},
	})
	if err != nil {
		return models.MetricPublication{}, err
	}
	return models.PublicationFromRecord(rec), nil
}

// Reader returns published metric rows only.
type Reader struct {
	a adapter.Adapter
}

// NewReader returns a reader over a.
func NewReader(a adapter.Adapter) *Reader {
	return &Reader{a: a}
}

// Daily returns the published daily rows of userID between from and to, inclusive.
// Zero bounds are open.
func (r *Reader) Daily(ctx context.Context, userID string, from, to time.Time) ([]models.DailyMetric, error) {
	records, err := r.published(ctx, userID, Daily, "date", from, to)
	if err != nil {
		return nil, err
	}
	out := make([]models.DailyMetric, len(records))
	for i, rec := range records {
		out[i] = models.DailyMetricFromRecord(rec)
	}
	return out, nil
}

// Weekly returns the published weekly rows of userID whose week starts between from
// and to, inclusive.
func (r *Reader) Weekly(ctx context.Context, userID string, from, to time.Time) ([]models.WeeklyMetric, error) {
	records, err := r.published(ctx, userID, Weekly, "week_start", from, to)
	if err != nil {
		return nil, err
	}
	out := make([]models.WeeklyMetric, len(records))
	for i, rec := range records {
		out[i] = models.WeeklyMetricFromRecord(rec)
	}
	return out, nil
}

// published reads the rows of the current build. If the pointer moves while the rows
// are read, the old build may already be gone, so the read is repeated.
func (r *Reader) published(ctx context.Context, userID string, kind Kind, dateField string, from, to time.Time) ([]adapter.Record, error) {
	const attempts = 3
	for i := 0; ; i++ {
		pub, err := findPublication(ctx, r.a, userID, kind)
		if errors.Is(err, types.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		records, err := r.a.FindMany(ctx, kind.entity(), adapter.Where(
			adapter.Eq{Field: "user_id", Value: userID},
			adapter.Eq{Field: "build_id", Value: pub.BuildID},
			dateRange(dateField, from, to),
		), adapter.Asc(dateField), 0)
		if err != nil {
			return nil, err
		}

		again, err := findPublication(ctx, r.a, userID, kind)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		if again.BuildID == pub.BuildID || i == attempts-1 {
			return records, nil
		}
	}
}

// dateRange builds an inclusive range over field, or nil when both bounds are open.
func dateRange(field string, from, to time.Time) adapter.Predicate {
	if from.IsZero() && to.IsZero() {
		return nil
	}
	r := adapter.Range{Field: field}
	if !from.IsZero() {
		r.From = models.NewDate(from).Time
	}
	if !to.IsZero() {
		r.To = models.NewDate(to).Time
	}
	return r
}
