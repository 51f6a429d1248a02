// app.go
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

// Package app wires the data layer together for the binaries: it resolves the
// schema version gate, opens the interactive and maintenance adapters of the
// active backend, and builds the services on top of them.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/adapter/document"
	"github.com/localnerve/wellnessdb/internal/adapter/relational"
	"github.com/localnerve/wellnessdb/internal/aggregation"
	"github.com/localnerve/wellnessdb/internal/config"
	"github.com/localnerve/wellnessdb/internal/database"
	"github.com/localnerve/wellnessdb/internal/gate"
	"github.com/localnerve/wellnessdb/internal/insights"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/migrator"
	"github.com/localnerve/wellnessdb/internal/services"
	"github.com/rs/zerolog/log"
)

// App holds the wired components. It is built once per process.
type App struct {
	Config *config.Config
	Gate   *gate.Gate

	// Adapter serves interactive requests; Maintenance serves metric rebuilds.
	Adapter     adapter.Adapter
	Maintenance adapter.Adapter

	// Migrator is nil unless the relational backend runs on PostgreSQL.
	Migrator *migrator.Migrator

	Engine   *aggregation.Engine
	Insights *insights.Generator
	Users    *services.UserService
	Checkins *services.CheckinService
	Query    *services.QueryService

	closers []func() error
}

// RetryPolicy builds the adapter retry policy from cfg.
func RetryPolicy(cfg *config.Config) adapter.RetryPolicy {
	p := adapter.DefaultRetryPolicy()
	p.MaxRetries = cfg.BackendMaxRetries
	if cfg.BackendRetryInitial > 0 {
		p.Initial = cfg.BackendRetryInitial
	}
	return p
}

// Bootstrap resolves the gate for cfg.DataBackend and connects the active backend.
// A mapping table that is incomplete for any backend fails here, before any
// request is served.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, error) {
	table := mapping.Default()
	g, err := gate.Resolve(cfg.DataBackend, table)
	if err != nil {
		return nil, err
	}
	policy := RetryPolicy(cfg)

	var (
		interactive, maintenance adapter.Adapter
		mig                      *migrator.Migrator
		closers                  []func() error
	)

	switch g.Backend {
	case mapping.Relational:
		appDB, err := database.Connect(cfg)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() error { return database.Close(appDB) })

		if err := database.AutoMigrate(appDB); err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		maintDB, err := database.ConnectMaintenance(cfg)
		if err != nil {
			closeAll(closers)
			return nil, err
		}
		closers = append(closers, func() error { return database.Close(maintDB) })

		interactive = relational.New(appDB, table, policy)
		maintenance = relational.New(maintDB, table, policy)

		if cfg.IsPostgres() {
			pool, err := migrator.Connect(ctx, cfg.PostgresURL())
			if err != nil {
				// Reads and writes do not need the migrator; views stay unrefreshed.
				log.Warn().Err(err).Msg("migrator pool unavailable, schema extras disabled")
			} else {
				closers = append(closers, func() error { pool.Close(); return nil })
				if mig, err = migrator.NewDefault(pool, policy); err != nil {
					closeAll(closers)
					return nil, err
				}
			}
		}

	case mapping.Document:
		opts := document.Options{
			BaseURL:   cfg.DocStoreURL,
			BaseID:    cfg.DocStoreBaseID,
			APIKey:    cfg.DocStoreAPIKey,
			RateLimit: cfg.DocStoreRateLimit,
			Timeout:   cfg.BackendTimeout,
		}
		interactive = document.New(opts, table, policy)
		opts.RateLimit = cfg.DocStoreMaintenanceRateLimit
		maintenance = document.New(opts, table, policy)
	}

	a := Assemble(cfg, g, interactive, maintenance, mig)
	a.closers = closers

	log.Info().
		Str("backend", string(g.Backend)).
		Bool("degraded", g.Degraded()).
		Bool("migrator", mig != nil).
		Msg("data layer ready")
	return a, nil
}

// Assemble builds the services over already opened adapters.
func Assemble(cfg *config.Config, g *gate.Gate, interactive, maintenance adapter.Adapter, mig *migrator.Migrator) *App {
	opts := aggregation.Options{Concurrency: cfg.AggregationConcurrency}
	if mig != nil && g.Supports(gate.MaterializedViews) {
		opts.Views = mig
	}
	engine := aggregation.New(maintenance, opts)

	reader := aggregation.NewReader(interactive)
	gen := insights.New(interactive, reader, insights.Options{LookbackDays: cfg.InsightLookbackDays})

	return &App{
		Config:      cfg,
		Gate:        g,
		Adapter:     interactive,
		Maintenance: maintenance,
		Migrator:    mig,
		Engine:      engine,
		Insights:    gen,
		Users:       services.NewUserService(interactive, g.Table),
		Checkins:    services.NewCheckinService(interactive, g.Table, gen),
		Query:       services.NewQueryService(interactive, reader, gen),
	}
}

// ApplySchemaExtras runs the migrator. Without one it reports nothing applied.
func (a *App) ApplySchemaExtras(ctx context.Context) migrator.Report {
	if a.Migrator == nil {
		log.Info().Str("backend", string(a.Gate.Backend)).Msg("no schema extras for this backend")
		return migrator.Report{Applied: []string{}, Failed: []migrator.Failure{}}
	}
	return a.Migrator.ApplySchemaExtras(ctx)
}

// RefreshViews refreshes the native materialized views, if any.
func (a *App) RefreshViews(ctx context.Context) migrator.RefreshReport {
	return a.Engine.RefreshViews(ctx)
}

// RefreshDaily rebuilds daily metrics over the maintenance adapter.
func (a *App) RefreshDaily(ctx context.Context, scope aggregation.Scope) (aggregation.Summary, error) {
	return a.Engine.RefreshDaily(ctx, scope)
}

// RefreshWeekly rebuilds weekly metrics over the maintenance adapter.
func (a *App) RefreshWeekly(ctx context.Context, scope aggregation.Scope) (aggregation.Summary, error) {
	return a.Engine.RefreshWeekly(ctx, scope)
}

// HealthCheck checks the interactive backend.
func (a *App) HealthCheck(ctx context.Context) services.HealthCheckResult {
	return services.HealthCheck(ctx, a.Config, a.Adapter)
}

// Close releases every pool. It is safe to call once.
func (a *App) Close() error {
	return closeAll(a.closers)
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithTimeout bounds a maintenance operation started from a binary.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

var _ migrator.Conn = (*pgxpool.Pool)(nil)
