// ops.go
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
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/wellnessdb/internal/aggregation"
	"github.com/localnerve/wellnessdb/internal/migrator"
	"github.com/localnerve/wellnessdb/internal/types"
)

// Maintenance is the part of the application the ops routes drive.
type Maintenance interface {
	ApplySchemaExtras(ctx context.Context) migrator.Report
	RefreshViews(ctx context.Context) migrator.RefreshReport
	RefreshDaily(ctx context.Context, scope aggregation.Scope) (aggregation.Summary, error)
	RefreshWeekly(ctx context.Context, scope aggregation.Scope) (aggregation.Summary, error)
}

// OpsHandler handles the operational routes.
type OpsHandler struct {
	Ops Maintenance
}

// ScopeRequest selects the users and days of a metric refresh. user_ids takes a
// single ID or an array.
type ScopeRequest struct {
	UserIDs types.FlexList[string] `json:"user_ids"`
	From    types.FlexDate         `json:"from"`
	To      types.FlexDate         `json:"to"`
}

func (r ScopeRequest) scope() (aggregation.Scope, error) {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From.Time) {
		return aggregation.Scope{}, types.NewValidationError("to", "must not be before from")
	}
	// A blank ID must not widen the refresh to every user.
	if r.UserIDs.HasZero() {
		return aggregation.Scope{}, types.NewValidationError("user_ids", "must not contain a blank ID")
	}
	return aggregation.Scope{UserIDs: r.UserIDs.Distinct(), From: r.From.Time, To: r.To.Time}, nil
}

// ApplySchemaExtras handles POST /api/ops/schema-extras
// @Summary Apply schema extras
// @Description Apply the bundled PostgreSQL functions, triggers and views. Idempotent.
// @Tags Ops
// @Produce json
// @Security BearerAuth
// @Success 200 {object} migrator.Report
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /ops/schema-extras [post]
func (h *OpsHandler) ApplySchemaExtras(c *fiber.Ctx) error {
	return c.JSON(h.Ops.ApplySchemaExtras(c.UserContext()))
}

// RefreshViews handles POST /api/ops/views/refresh
// @Summary Refresh materialized views
// @Tags Ops
// @Produce json
// @Security BearerAuth
// @Success 200 {object} migrator.RefreshReport
// @Router /ops/views/refresh [post]
func (h *OpsHandler) RefreshViews(c *fiber.Ctx) error {
	return c.JSON(h.Ops.RefreshViews(c.UserContext()))
}

// RefreshDaily handles POST /api/ops/metrics/daily
// @Summary Refresh daily metrics
// @Tags Ops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param scope body ScopeRequest false "Users and days to refresh"
// @Success 200 {object} aggregation.Summary
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /ops/metrics/daily [post]
func (h *OpsHandler) RefreshDaily(c *fiber.Ctx) error {
	return h.refresh(c, h.Ops.RefreshDaily)
}

// RefreshWeekly handles POST /api/ops/metrics/weekly
// @Summary Refresh weekly metrics
// @Tags Ops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param scope body ScopeRequest false "Users and days to refresh"
// @Success 200 {object} aggregation.Summary
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /ops/metrics/weekly [post]
func (h *OpsHandler) RefreshWeekly(c *fiber.Ctx) error {
	return h.refresh(c, h.Ops.RefreshWeekly)
}

func (h *OpsHandler) refresh(c *fiber.Ctx, run func(context.Context, aggregation.Scope) (aggregation.Summary, error)) error {
	var req ScopeRequest
	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return types.NewValidationError("", "invalid scope: %v", err)
		}
	}
	scope, err := req.scope()
	if err != nil {
		return err
	}

	// A rebuild outlives a dropped client connection.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.UserContext()), 15*time.Minute)
	defer cancel()

	summary, err := run(ctx, scope)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}
