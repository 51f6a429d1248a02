// client.go
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

package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/wellnessdb/internal/types"
	"golang.org/x/time/rate"
)

// Options configure the record store client.
type Options struct {
	// BaseURL is the API root, e.g. https://api.airtable.com/v0.
	BaseURL string
	BaseID  string
	APIKey  string

	// RateLimit is the request budget in requests per second.
	RateLimit float64

	// Timeout bounds a single HTTP attempt. The caller's deadline still applies.
	Timeout time.Duration

	// PageSize is the number of records requested per list page (max 100).
	PageSize int
}

func (o Options) withDefaults() Options {
	if o.RateLimit <= 0 {
		o.RateLimit = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.PageSize <= 0 || o.PageSize > 100 {
		o.PageSize = 100
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	return o
}

// wireRecord is a record as the REST API returns it.
type wireRecord struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
	Deleted     bool           `json:"deleted,omitempty"`
}

type listResponse struct {
	Records []wireRecord `json:"records"`
	Offset  string       `json:"offset,omitempty"`
}

type apiError struct {
	Error json.RawMessage `json:"error"`
}

// client issues throttled REST calls through the fiber HTTP agent.
type client struct {
	opts    Options
	limiter *rate.Limiter
}

func newClient(opts Options) *client {
	opts = opts.withDefaults()
	burst := max(int(opts.RateLimit), 1)
	return &client{
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), burst),
	}
}

func (c *client) tableURL(table string, id string) string {
	u := c.opts.BaseURL + "/" + url.PathEscape(c.opts.BaseID) + "/" + url.PathEscape(table)
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u
}

// do performs one attempt. The status code is interpreted by the caller; transport
// failures and retryable statuses come back as TransientBackendError.
func (c *client) do(ctx context.Context, op, method, target string, query url.Values, body any) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		// The wait would outlast the deadline.
		return 0, nil, context.DeadlineExceeded
	}

	timeout := c.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, nil, context.DeadlineExceeded
		}
		timeout = min(timeout, remaining)
	}

	var agent *fiber.Agent
	switch method {
	case fiber.MethodGet:
		agent = fiber.Get(target)
	case fiber.MethodPost:
		agent = fiber.Post(target)
	case fiber.MethodPatch:
		agent = fiber.Patch(target)
	case fiber.MethodDelete:
		agent = fiber.Delete(target)
	default:
		return 0, nil, fmt.Errorf("unsupported method %s", method)
	}

	agent.Set(fiber.HeaderAuthorization, "Bearer "+c.opts.APIKey).
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON).
		Timeout(timeout)
	if len(query) > 0 {
		agent.QueryString(query.Encode())
	}
	if body != nil {
		agent.JSON(body)
	}

	code, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		return 0, nil, &types.TransientBackendError{Backend: string(backend), Op: op, Err: err}
	}

	if code == fiber.StatusTooManyRequests || code >= 500 {
		return code, respBody, &types.TransientBackendError{
			Backend: string(backend),
			Op:      op,
			Err:     fmt.Errorf("status %d: %s", code, errorMessage(respBody)),
		}
	}
	return code, respBody, nil
}

// statusError maps a non-2xx, non-retryable status onto the domain taxonomy.
func statusError(code int, body []byte) error {
	msg := errorMessage(body)
	switch code {
	case fiber.StatusUnauthorized, fiber.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", types.ErrUnauthorized, code, msg)
	case fiber.StatusNotFound:
		return fmt.Errorf("%w: %s", types.ErrNotFound, msg)
	case fiber.StatusUnprocessableEntity, fiber.StatusBadRequest:
		return types.NewValidationError("", "record store rejected the request: %s", msg)
	}
	return fmt.Errorf("record store: unexpected status %d: %s", code, msg)
}

// errorMessage extracts the message of an API error body, which is either a string
// or an object with type and message.
func errorMessage(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil || len(e.Error) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if json.Unmarshal(e.Error, &s) == nil {
		return s
	}
	var obj struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if json.Unmarshal(e.Error, &obj) == nil {
		if obj.Message == "" {
			return obj.Type
		}
		return obj.Type + ": " + obj.Message
	}
	return string(e.Error)
}
