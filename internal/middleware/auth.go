// auth.go
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

package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/wellnessdb/internal/types"
)

// AuthOps guards the operational routes with a static bearer token. An empty token
// disables the routes.
func AuthOps(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, token, "ops.authorization")
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, token, errorType string) error {
	if token == "" {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: "Operational routes are disabled",
			Type:    errorType,
		}
	}

	header := c.Get(fiber.HeaderAuthorization)
	presented, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || presented == "" {
		return &types.CustomError{
			Code:    fiber.StatusUnauthorized,
			Message: "Bearer token not found",
			Type:    errorType,
		}
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: "Invalid bearer token",
			Type:    errorType,
		}
	}

	c.Locals("ops", true)
	return c.Next()
}
