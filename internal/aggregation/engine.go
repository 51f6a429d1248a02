// engine.go
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

// Package aggregation maintains the derived daily and weekly metric rows.
//
// Daily rows are a full recompute from raw check-ins; weekly rows are rolled up from
// published daily rows only. Every refresh writes a new build and publishes it by
// flipping a per-user pointer, so readers never observe a half-written refresh.
// Refresh is an explicit operation and is never started by a read.
package aggregation

import (
	"context"
	"sync"
	"time"

	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/metrics"
	"github.com/localnerve/wellnessdb/internal/migrator"
	"github.com/localnerve/wellnessdb/internal/models"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Scope selects what a refresh recomputes. Empty UserIDs means every user; zero
// dates are unbounded.
type Scope struct {
	UserIDs []string  `json:"user_ids,omitempty"`
	From    time.Time `json:"from,omitzero"`
	To      time.Time `json:"to,omitzero"`
}

func (s Scope) bounded() bool {
	return !s.From.IsZero() || !s.To.IsZero()
}

// contains reports whether day d lies inside the scope's date range.
func (s Scope) contains(d time.Time) bool {
	if !s.From.IsZero() && d.Before(models.NewDate(s.From).Time) {
		return false
	}
	if !s.To.IsZero() && d.After(models.NewDate(s.To).Time) {
		return false
	}
	return true
}

// Failure records one user whose refresh did not publish.
type Failure struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// Summary reports a refresh batch. Failures do not abort the batch.
type Summary struct {
	Kind       Kind      `json:"kind"`
	Users      int       `json:"users"`
	Refreshed  []string  `json:"refreshed"`
	Rows       int       `json:"rows"`
	Failed     []Failure `json:"failed"`
	DurationMs int64     `json:"durationMs"`
}

// ViewRefresher refreshes native materialized views.
type ViewRefresher interface {
	RefreshViews(ctx context.Context) migrator.RefreshReport
}

// Options configure an Engine.
type Options struct {
	// Concurrency bounds how many users are refreshed at once.
	Concurrency int

	// Views refreshes native views. Nil on backends without them.
	Views ViewRefresher
}

// Engine refreshes derived metrics through an adapter, normally one bound to the
// maintenance connection budget.
type Engine struct {
	a           adapter.Adapter
	reader      *Reader
	pub         *publisher
	views       ViewRefresher
	concurrency int
	tracer      trace.Tracer
}

// New returns an engine writing through a.
func New(a adapter.Adapter, opts Options) *Engine {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Engine{
		a:           a,
		reader:      NewReader(a),
		pub:         &publisher{a: a, now: func() time.Time { return time.Now().UTC() }},
		views:       opts.Views,
		concurrency: opts.Concurrency,
		tracer:      otel.Tracer("aggregation/Engine"),
	}
}

// Reader returns a reader over the engine's adapter.
func (e *Engine) Reader() *Reader {
	return e.reader
}

// RefreshDaily recomputes each user's daily rows inside the scope from raw check-ins,
// keeps the published rows outside the scope's dates, and publishes the result.
func (e *Engine) RefreshDaily(ctx context.Context, scope Scope) (Summary, error) {
	return e.run(ctx, Daily, scope, e.refreshDailyUser)
}

// RefreshWeekly recomputes each user's weekly rows from the published daily rows.
// The scope's dates widen to whole ISO weeks.
func (e *Engine) RefreshWeekly(ctx context.Context, scope Scope) (Summary, error) {
	if !scope.From.IsZero() {
		scope.From = WeekStart(scope.From)
	}
	if !scope.To.IsZero() {
		scope.To = WeekStart(scope.To).AddDate(0, 0, 6)
	}
	return e.run(ctx, Weekly, scope, e.refreshWeeklyUser)
}

// RefreshViews triggers the native materialized-view refresh when the backend has
// one. The backend makes each refresh atomic to readers.
func (e *Engine) RefreshViews(ctx context.Context) migrator.RefreshReport {
	start := time.Now()
	defer metrics.ObserveRefresh("views", start)

	if e.views == nil {
		return migrator.RefreshReport{Refreshed: []string{}, Failed: []migrator.Failure{}}
	}

	ctx, span := e.tracer.Start(ctx, "RefreshViews")
	defer span.End()

	report := e.views.RefreshViews(ctx)
	span.SetAttributes(
		attribute.Int("views.refreshed", len(report.Refreshed)),
		attribute.Int("views.failed", len(report.Failed)),
	)
	if len(report.Failed) > 0 {
		span.SetStatus(codes.Error, "view refresh failed")
	}
	return report
}

type userRefresh func(ctx context.Context, userID string, scope Scope) (int, error)

func (e *Engine) run(ctx context.Context, kind Kind, scope Scope, refresh userRefresh) (Summary, error) {
	start := time.Now()
	defer metrics.ObserveRefresh(string(kind), start)

	ctx, span := e.tracer.Start(ctx, "Refresh",
		trace.WithAttributes(
			attribute.String("metrics.kind", string(kind)),
			attribute.Int("scope.users", len(scope.UserIDs)),
		),
	)
	defer span.End()

	summary := Summary{Kind: kind, Refreshed: []string{}, Failed: []Failure{}}

	users := scope.UserIDs
	if len(users) == 0 {
		var err error
		if users, err = e.allUsers(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return summary, err
		}
	}
	summary.Users = len(users)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, userID := range users {
		g.Go(func() error {
			rows, err := refresh(gctx, userID, scope)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.RefreshFailures.WithLabelValues(string(kind)).Inc()
				log.Error().Err(err).Str("user_id", userID).Str("kind", string(kind)).Msg("metric refresh failed")
				summary.Failed = append(summary.Failed, Failure{UserID: userID, Error: err.Error()})
				return nil
			}
			summary.Refreshed = append(summary.Refreshed, userID)
			summary.Rows += rows
			return nil
		})
	}
	_ = g.Wait()

	summary.DurationMs = time.Since(start).Milliseconds()
	span.SetAttributes(
		attribute.Int("refresh.users", summary.Users),
		attribute.Int("refresh.failed", len(summary.Failed)),
		attribute.Int("refresh.rows", summary.Rows),
	)
	if len(summary.Failed) > 0 {
		span.SetStatus(codes.Error, "some users failed to refresh")
	}

	log.Info().
		Str("kind", string(kind)).
		Int("users", summary.Users).
		Int("failed", len(summary.Failed)).
		Int("rows", summary.Rows).
		Int64("duration_ms", summary.DurationMs).
		Msg("metric refresh finished")
	return summary, nil
}

func (e *Engine) allUsers(ctx context.Context) ([]string, error) {
	records, err := e.a.FindMany(ctx, mapping.Users, nil, nil, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids, nil
}

func (e *Engine) refreshDailyUser(ctx context.Context, userID string, scope Scope) (int, error) {
	records, err := e.a.FindMany(ctx, mapping.DailyCheckins, adapter.Where(
		adapter.Eq{Field: "user_id", Value: userID},
		dateRange("date_submitted", scope.From, scope.To),
	), adapter.Asc("date_submitted"), 0)
	if err != nil {
		return 0, err
	}
	checkins := make([]models.DailyCheckin, len(records))
	for i, r := range records {
		checkins[i] = models.CheckinFromRecord(r)
	}

	var rows []mapping.Fields
	for _, m := range ComputeDaily(checkins) {
		rows = append(rows, m.Fields())
	}

	if scope.bounded() {
		current, err := e.reader.Daily(ctx, userID, time.Time{}, time.Time{})
		if err != nil {
			return 0, err
		}
		for _, m := range current {
			if !scope.contains(m.Date.Time) {
				rows = append(rows, m.Fields())
			}
		}
	}

	if _, err := e.pub.publish(ctx, userID, Daily, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (e *Engine) refreshWeeklyUser(ctx context.Context, userID string, scope Scope) (int, error) {
	daily, err := e.reader.Daily(ctx, userID, scope.From, scope.To)
	if err != nil {
		return 0, err
	}

	var rows []mapping.Fields
	for _, w := range ComputeWeekly(daily) {
		rows = append(rows, w.Fields())
	}

	if scope.bounded() {
		current, err := e.reader.Weekly(ctx, userID, time.Time{}, time.Time{})
		if err != nil {
			return 0, err
		}
		for _, w := range current {
			if !scope.contains(w.WeekStart.Time) {
				rows = append(rows, w.Fields())
			}
		}
	}

	if _, err := e.pub.publish(ctx, userID, Weekly, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
