// routes.go
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

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/wellnessdb/internal/app"
	"github.com/localnerve/wellnessdb/internal/middleware"
)

// HealthHandler reports backend health.
type HealthHandler struct {
	App *app.App
}

// Health handles GET /api/health
// @Summary Backend health
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	result := h.App.HealthCheck(c.UserContext())
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}

// Register mounts the API routes on router.
func Register(router fiber.Router, a *app.App) {
	router.Use(middleware.VersionMiddleware())

	health := &HealthHandler{App: a}
	router.Get("/health", health.Health)

	users := &UserHandler{Users: a.Users, Checkins: a.Checkins, Query: a.Query}
	u := router.Group("/users")
	u.Post("/", users.CreateUser)
	u.Get("/:id", users.GetUser)
	u.Patch("/:id", users.UpdateUser)
	u.Post("/:id/checkins", users.CreateCheckin)
	u.Get("/:id/checkins", users.ListCheckins)
	u.Get("/:id/insights/:date", users.GetDailyInsight)
	u.Get("/:id/metrics", users.GetMetrics)

	ops := &OpsHandler{Ops: a}
	o := router.Group("/ops", middleware.AuthOps(a.Config.OpsToken))
	o.Post("/schema-extras", ops.ApplySchemaExtras)
	o.Post("/views/refresh", ops.RefreshViews)
	o.Post("/metrics/daily", ops.RefreshDaily)
	o.Post("/metrics/weekly", ops.RefreshWeekly)
}
