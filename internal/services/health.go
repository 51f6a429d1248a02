// health.go
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
	"fmt"
	"time"

	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/config"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/utils"
	"github.com/rs/zerolog/log"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Backend      string            `json:"backend"`
	Database     string            `json:"database"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// HealthCheck checks that the active backend answers. For the record store the
// endpoint is first probed at TCP level, so an unreachable host is told apart from a
// rejected API call.
func HealthCheck(ctx context.Context, cfg *config.Config, a adapter.Adapter) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Backend: string(a.Backend()),
		Details: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch a.Backend() {
	case mapping.Relational:
		result.Details["database_type"] = cfg.DBType
		result.Details["database_name"] = cfg.DBDatabase
	case mapping.Document:
		result.Details["docstore_url"] = cfg.DocStoreURL
		if err := utils.PingServiceContext(ctx, cfg.DocStoreURL); err != nil {
			result.Status = "unhealthy"
			result.Database = "unreachable"
			result.Details["docstore_ping_error"] = err.Error()
			result.ErrorMessage = fmt.Sprintf("Record store unreachable: %v", err)
			log.Error().Err(err).Msg("Health check failed - record store unreachable")
			return result
		}
	}

	if err := a.Ping(ctx); err != nil {
		result.Status = "unhealthy"
		result.Database = "error"
		result.Details["ping_error"] = err.Error()
		result.ErrorMessage = fmt.Sprintf("Backend ping failed: %v", err)
		log.Error().Err(err).Str("backend", result.Backend).Msg("Health check failed - backend ping")
		return result
	}

	result.Database = "ok"
	log.Debug().Str("backend", result.Backend).Msg("Health check passed")
	return result
}
