// response.go
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

package utils

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/wellnessdb/internal/types"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return FieldErrorResponse(c, message, status, errorType, "")
}

// FieldErrorResponse sends an error response naming the offending input field.
func FieldErrorResponse(c *fiber.Ctx, message string, status int, errorType, field string) error {
	return c.Status(status).JSON(ErrorResponseStruct{
		Status:    status,
		Message:   message,
		Ok:        false,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		URL:       c.OriginalURL(),
		Type:      errorType,
		Field:     field,
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusNotFound, "not_found")
}

// DomainErrorResponse maps a data layer error to its HTTP status.
func DomainErrorResponse(c *fiber.Ctx, err error) error {
	var (
		vErr   *types.ValidationError
		cErr   *types.ConflictError
		custom *types.CustomError
	)
	switch {
	case errors.As(err, &vErr):
		return FieldErrorResponse(c, err.Error(), fiber.StatusBadRequest, "validation", vErr.Field)
	case errors.As(err, &cErr):
		return FieldErrorResponse(c, err.Error(), fiber.StatusConflict, "conflict", cErr.Field)
	case errors.Is(err, types.ErrConflict):
		return ErrorResponse(c, err.Error(), fiber.StatusConflict, "conflict")
	case errors.Is(err, types.ErrNotFound):
		return NotFoundResponse(c, err.Error())
	case errors.Is(err, types.ErrTimeout):
		return ErrorResponse(c, "The data backend did not answer in time.", fiber.StatusGatewayTimeout, "timeout")
	case errors.Is(err, types.ErrBackendUnavailable), errors.Is(err, types.ErrTransient):
		return ErrorResponse(c, "The data backend is unavailable, try again.", fiber.StatusServiceUnavailable, "unavailable")
	case errors.Is(err, types.ErrUnauthorized):
		return ErrorResponse(c, "The data backend rejected its credentials.", fiber.StatusBadGateway, "backend_unauthorized")
	case errors.As(err, &custom):
		return ErrorResponse(c, custom.Message, custom.Code, custom.Type)
	}
	return ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "unknown")
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
	Field     string `json:"field,omitempty"`
}
