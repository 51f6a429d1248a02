// main.go
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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/adapter/document"
	"github.com/localnerve/wellnessdb/internal/adapter/relational"
	"github.com/localnerve/wellnessdb/internal/app"
	"github.com/localnerve/wellnessdb/internal/config"
	"github.com/localnerve/wellnessdb/internal/database"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// healthcheck probes the configured backend without migrating it. It prints the
// result as JSON and exits non-zero when the backend is unhealthy.
func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	table := mapping.Default()
	policy := app.RetryPolicy(cfg)
	policy.MaxRetries = 0

	var a adapter.Adapter
	switch cfg.Backend() {
	case mapping.Document:
		a = document.New(document.Options{
			BaseURL: cfg.DocStoreURL,
			BaseID:  cfg.DocStoreBaseID,
			APIKey:  cfg.DocStoreAPIKey,
			Timeout: cfg.BackendTimeout,
		}, table, policy)
	default:
		appDB, err := database.Connect(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer database.Close(appDB)
		a = relational.New(appDB, table, policy)
	}

	// Perform health check
	result := services.HealthCheck(context.Background(), cfg, a)

	// Output result as JSON
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to marshal health check result")
	}

	fmt.Println(string(output))

	// Exit with appropriate code
	if result.Status != "healthy" {
		os.Exit(1)
	}
}
