// users.go
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
	"github.com/localnerve/wellnessdb/internal/services"
	"github.com/localnerve/wellnessdb/internal/types"
)

// UserHandler handles profile, check-in, insight and metric routes.
type UserHandler struct {
	Users    *services.UserService
	Checkins *services.CheckinService
	Query    *services.QueryService
}

// CreateUser handles POST /api/users
// @Summary Create a user
// @Description Create a profile. email is required and unique.
// @Tags Users
// @Accept json
// @Produce json
// @Param user body map[string]interface{} true "Profile fields"
// @Success 201 {object} models.User
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Router /users [post]
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	raw, err := parseBody(c)
	if err != nil {
		return err
	}
	user, err := h.Users.CreateUser(c.UserContext(), raw)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// GetUser handles GET /api/users/:id
// @Summary Get a user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.Users.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// UpdateUser handles PATCH /api/users/:id
// @Summary Update a user
// @Description Merge the given fields into the profile. null clears an optional field.
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param user body map[string]interface{} true "Partial profile"
// @Success 200 {object} models.User
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{id} [patch]
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	raw, err := parseBody(c)
	if err != nil {
		return err
	}
	user, err := h.Users.UpdateUser(c.UserContext(), c.Params("id"), raw)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// CreateCheckin handles POST /api/users/:id/checkins
// @Summary Submit a daily check-in
// @Description List fields accept a single value or an array. Unrecognized keys are rejected.
// @Tags Checkins
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param checkin body map[string]interface{} true "Check-in fields"
// @Success 201 {object} models.DailyCheckin
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{id}/checkins [post]
func (h *UserHandler) CreateCheckin(c *fiber.Ctx) error {
	raw, err := parseBody(c)
	if err != nil {
		return err
	}
	checkin, err := h.Checkins.Ingest(c.UserContext(), c.Params("id"), raw)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(checkin)
}

// ListCheckins handles GET /api/users/:id/checkins?limit=&order=
// @Summary List check-ins
// @Tags Checkins
// @Produce json
// @Param id path string true "User ID"
// @Param limit query int false "Maximum rows (default and cap 500)"
// @Param order query string false "asc or desc (default)"
// @Success 200 {array} models.DailyCheckin
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /users/{id}/checkins [get]
func (h *UserHandler) ListCheckins(c *fiber.Ctx) error {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		return err
	}
	checkins, err := h.Query.ListCheckins(c.UserContext(), c.Params("id"), limit, c.Query("order"))
	if err != nil {
		return err
	}
	return c.JSON(checkins)
}

// GetDailyInsight handles GET /api/users/:id/insights/:date
// @Summary Get the daily insight
// @Description Returns the cached insight, generating it when absent or stale. Backend failures degrade to a generic insight.
// @Tags Insights
// @Produce json
// @Param id path string true "User ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} models.Insight
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /users/{id}/insights/{date} [get]
func (h *UserHandler) GetDailyInsight(c *fiber.Ctx) error {
	date, err := parseDateParam("date", c.Params("date"))
	if err != nil {
		return err
	}
	if date.IsZero() {
		return types.NewValidationError("date", "is required")
	}
	insight, err := h.Query.GetDailyInsight(c.UserContext(), c.Params("id"), date)
	if err != nil {
		return err
	}
	return c.JSON(insight)
}

// GetMetrics handles GET /api/users/:id/metrics?from=&to=
// @Summary Get derived metrics
// @Description Published daily rows in the range and weekly rows whose week overlaps it.
// @Tags Metrics
// @Produce json
// @Param id path string true "User ID"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Success 200 {object} services.Metrics
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /users/{id}/metrics [get]
func (h *UserHandler) GetMetrics(c *fiber.Ctx) error {
	from, err := parseDateParam("from", c.Query("from"))
	if err != nil {
		return err
	}
	to, err := parseDateParam("to", c.Query("to"))
	if err != nil {
		return err
	}
	m, err := h.Query.GetMetrics(c.UserContext(), c.Params("id"), services.DateRange{From: from, To: to})
	if err != nil {
		return err
	}
	return c.JSON(m)
}
