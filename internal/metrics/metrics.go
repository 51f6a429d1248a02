// metrics.go
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

// Package metrics holds the Prometheus collectors of the data layer. They are
// registered with the default registry, which the server exposes at /metrics.
//
// Labels are limited to backend, entity, operation and outcome so cardinality
// stays bounded regardless of user count.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// BackendRequests counts adapter operations by outcome (ok, not_found,
	// validation, conflict, unavailable, timeout, error).
	BackendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_backend_requests_total",
			Help: "Adapter operations by backend, entity, operation and outcome.",
		},
		[]string{"backend", "entity", "op", "outcome"},
	)

	// BackendRetries counts retry attempts after a transient failure.
	BackendRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_backend_retries_total",
			Help: "Retried adapter attempts after a transient backend error.",
		},
		[]string{"backend", "op"},
	)

	// RefreshDuration records aggregation refresh latency by kind (daily, weekly, views).
	RefreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wellness_refresh_duration_seconds",
			Help:    "Duration of derived metric refreshes.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"kind"},
	)

	// RefreshFailures counts users whose refresh failed.
	RefreshFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_refresh_failures_total",
			Help: "Per-user refresh failures by kind.",
		},
		[]string{"kind"},
	)

	// SchemaObjects counts migrator outcomes per applied object.
	SchemaObjects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_schema_objects_total",
			Help: "Schema extras applied or failed by the migrator.",
		},
		[]string{"result"},
	)

	// InsightsGenerated counts persisted insights by type and personalization.
	InsightsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_insights_generated_total",
			Help: "Insights written by the generator.",
		},
		[]string{"type", "personalized"},
	)
)

func init() {
	prometheus.MustRegister(
		BackendRequests,
		BackendRetries,
		RefreshDuration,
		RefreshFailures,
		SchemaObjects,
		InsightsGenerated,
	)
}

// ObserveRefresh records the duration since start for kind.
func ObserveRefresh(kind string, start time.Time) {
	RefreshDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
