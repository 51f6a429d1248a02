// migrator.go
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

// Package migrator applies the additive PostgreSQL schema objects (functions,
// triggers, views, materialized views and their indexes) that the relational backend
// relies on, and refreshes the materialized views.
//
// Every DDL statement is idempotent, so applying the set again is safe. The migrator
// runs out of band, from the CLI or an ops route, over its own maintenance pool.
package migrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/localnerve/wellnessdb/data"
	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/metrics"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/rs/zerolog/log"
)

// Conn is the subset of a pgx pool the migrator uses.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Failure names an object that could not be applied, verified or refreshed.
type Failure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Report is the outcome of ApplySchemaExtras.
type Report struct {
	Applied []string  `json:"applied"`
	Failed  []Failure `json:"failed"`
}

// RefreshReport is the outcome of RefreshViews.
type RefreshReport struct {
	Refreshed  []string  `json:"refreshed"`
	Failed     []Failure `json:"failed"`
	DurationMs int64     `json:"durationMs"`
}

// Migrator applies schema objects over conn.
type Migrator struct {
	conn    Conn
	objects []SchemaObject
	policy  adapter.RetryPolicy
}

// New returns a migrator for the given objects.
func New(conn Conn, objects []SchemaObject, policy adapter.RetryPolicy) *Migrator {
	return &Migrator{conn: conn, objects: objects, policy: policy}
}

// NewDefault returns a migrator for the bundled PostgreSQL objects.
func NewDefault(conn Conn, policy adapter.RetryPolicy) (*Migrator, error) {
	objects, err := Load(data.PostgresSchema, data.PostgresSchemaDir)
	if err != nil {
		return nil, err
	}
	return New(conn, objects, policy), nil
}

// Connect opens the migrator's pgx pool and checks it.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create migrator pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping migrator pool: %w", err)
	}
	return pool, nil
}

// Objects returns the objects in apply order.
func (m *Migrator) Objects() []SchemaObject {
	return append([]SchemaObject(nil), m.objects...)
}

// ApplySchemaExtras executes each object's DDL in order and then verifies the object
// exists in the catalog. A failure is recorded and the next object is still applied.
func (m *Migrator) ApplySchemaExtras(ctx context.Context) Report {
	report := Report{Applied: []string{}, Failed: []Failure{}}

	for _, obj := range m.objects {
		logger := log.With().Str("object", obj.Name).Str("kind", string(obj.Kind)).Logger()

		err := m.call(ctx, "apply", func(ctx context.Context) error {
			_, err := m.conn.Exec(ctx, obj.DDL)
			return err
		})
		if err == nil {
			err = m.verify(ctx, obj)
		}
		if err != nil {
			logger.Error().Err(err).Msg("schema object failed")
			metrics.SchemaObjects.WithLabelValues("failed").Inc()
			report.Failed = append(report.Failed, Failure{Name: obj.Name, Error: err.Error()})
			continue
		}

		logger.Info().Msg("schema object applied")
		metrics.SchemaObjects.WithLabelValues("applied").Inc()
		report.Applied = append(report.Applied, obj.Name)
	}
	return report
}

func (m *Migrator) verify(ctx context.Context, obj SchemaObject) error {
	query := presenceQuery(obj.Kind)
	var exists bool
	err := m.call(ctx, "verify", func(ctx context.Context) error {
		return m.conn.QueryRow(ctx, query, obj.Name).Scan(&exists)
	})
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !exists {
		return fmt.Errorf("verify: %s %s not found in catalog after apply", obj.Kind, obj.Name)
	}
	return nil
}

// populatedQuery reports whether a materialized view holds data. A view created WITH
// NO DATA cannot be refreshed concurrently.
const populatedQuery = `SELECT ispopulated FROM pg_matviews WHERE matviewname = $1`

// RefreshViews refreshes every materialized view concurrently. A view that has never
// been populated gets a plain refresh instead.
func (m *Migrator) RefreshViews(ctx context.Context) RefreshReport {
	start := time.Now()
	report := RefreshReport{Refreshed: []string{}, Failed: []Failure{}}

	for _, obj := range m.objects {
		if obj.Kind != MaterializedView {
			continue
		}
		if err := m.refresh(ctx, obj.Name); err != nil {
			log.Error().Err(err).Str("view", obj.Name).Msg("view refresh failed")
			report.Failed = append(report.Failed, Failure{Name: obj.Name, Error: err.Error()})
			continue
		}
		report.Refreshed = append(report.Refreshed, obj.Name)
	}

	report.DurationMs = time.Since(start).Milliseconds()
	return report
}

func (m *Migrator) refresh(ctx context.Context, view string) error {
	var populated bool
	err := m.call(ctx, "refresh", func(ctx context.Context) error {
		return m.conn.QueryRow(ctx, populatedQuery, view).Scan(&populated)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("materialized view %s not found in catalog", view)
	}
	if err != nil {
		return fmt.Errorf("check populated: %w", err)
	}

	name := pq.QuoteIdentifier(view)
	plain := func(ctx context.Context) error {
		_, err := m.conn.Exec(ctx, "REFRESH MATERIALIZED VIEW "+name)
		return err
	}
	if !populated {
		log.Info().Str("view", view).Msg("view not populated, refreshing without CONCURRENTLY")
		return m.call(ctx, "refresh", plain)
	}

	err = m.call(ctx, "refresh", func(ctx context.Context) error {
		_, err := m.conn.Exec(ctx, "REFRESH MATERIALIZED VIEW CONCURRENTLY "+name)
		return err
	})
	// Truncated since the check.
	if isNotPopulated(err) {
		log.Info().Str("view", view).Msg("view no longer populated, refreshing without CONCURRENTLY")
		return m.call(ctx, "refresh", plain)
	}
	return err
}

// call runs fn under the retry policy, retrying transient PostgreSQL errors.
func (m *Migrator) call(ctx context.Context, op string, fn func(context.Context) error) error {
	return adapter.Call(ctx, m.policy, mapping.Relational, "schema", op, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && isTransient(err) {
			return &types.TransientBackendError{Backend: string(mapping.Relational), Op: op, Err: err}
		}
		return err
	})
}

// isNotPopulated matches feature_not_supported, which PostgreSQL raises for
// REFRESH ... CONCURRENTLY on a view that is not populated.
func isNotPopulated(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "0A000"
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "57P"),
			pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "53300":
			return true
		}
		return false
	}
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}
