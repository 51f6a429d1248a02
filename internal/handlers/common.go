// common.go
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
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/localnerve/wellnessdb/internal/utils"
	"github.com/rs/zerolog/log"
)

// ErrorHandler renders errors returned by handlers and middleware in the standard
// error envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.ErrorResponse(c, fe.Message, fe.Code, "http")
	}
	if !isDomain(err) {
		log.Error().Err(err).Str("url", c.OriginalURL()).Msg("request failed")
	}
	return utils.DomainErrorResponse(c, err)
}

func isDomain(err error) bool {
	var custom *types.CustomError
	return errors.Is(err, types.ErrValidation) ||
		errors.Is(err, types.ErrConflict) ||
		errors.Is(err, types.ErrNotFound) ||
		errors.As(err, &custom)
}

// parseBody decodes a JSON object body into a field map.
func parseBody(c *fiber.Ctx) (map[string]any, error) {
	body := c.Body()
	if len(body) == 0 {
		return map[string]any{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, types.NewValidationError("", "body must be a JSON object: %v", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// parseDateParam reads an optional YYYY-MM-DD value. Empty returns the zero time.
func parseDateParam(name, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	d, err := types.ParseDate(value)
	if err != nil {
		return time.Time{}, types.NewValidationError(name, "%v", err)
	}
	return d, nil
}

func parseLimit(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, types.NewValidationError("limit", "must be a non-negative integer")
	}
	return n, nil
}
