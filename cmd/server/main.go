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
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	"github.com/localnerve/wellnessdb/internal/app"
	"github.com/localnerve/wellnessdb/internal/config"
	"github.com/localnerve/wellnessdb/internal/handlers"
	"github.com/localnerve/wellnessdb/internal/observability"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/localnerve/wellnessdb/internal/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/localnerve/wellnessdb/docs/api" // Swagger docs
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// @title WellnessDB API
// @version 1.0.0
// @description Health tracking data service over a relational or record store backend
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/wellnessdb
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "wellnessdb").Logger()

	// A missing .env is normal outside development
	if err := godotenv.Load(); err == nil {
		log.Info().Msg("Loaded environment from .env")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		var cfgErr *types.ConfigurationError
		if errors.As(err, &cfgErr) {
			for _, p := range cfgErr.Problems {
				log.Error().Str("problem", p).Msg("invalid configuration")
			}
		}
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	utils.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up tracing")
	}

	// Resolve the schema gate and connect the active backend
	wired, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize the data layer")
	}

	// Create Fiber app
	server := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: true,
	})

	// Global middleware
	server.Use(recover.New())
	server.Use(logger.New())
	server.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("wellnessdb")
	prometheus.RegisterAt(server, "/metrics")
	server.Use(prometheus.Middleware)

	// Swagger documentation
	server.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	handlers.Register(server.Group("/api"), wired)

	// 404 handler
	server.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundResponse(c, "[404] Resource Not Found")
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("Gracefully shutting down...")
		_ = server.ShutdownWithTimeout(10 * time.Second)
	}()

	// Start server
	log.Info().
		Str("port", cfg.Port).
		Str("backend", string(wired.Gate.Backend)).
		Str("version", version).
		Msg("Starting server")
	if err := server.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush traces")
	}
	if err := wired.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close backend pools")
	}
	log.Info().Msg("Server stopped")
}
