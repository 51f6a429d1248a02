// retry.go
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

package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/metrics"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/rs/zerolog/log"
)

// RetryPolicy bounds the retries of transient backend errors.
type RetryPolicy struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
}

// DefaultRetryPolicy retries three times starting at 100ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Initial: 100 * time.Millisecond, Max: 2 * time.Second}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		b.InitialInterval = p.Initial
	}
	if p.Max > 0 {
		b.MaxInterval = p.Max
	}
	b.MaxElapsedTime = 0
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Call runs fn under the retry policy and records the outcome.
//
// Transient errors are retried with exponential backoff; once retries run out the
// result wraps ErrBackendUnavailable. Any other error is returned at once. When the
// caller's deadline expires the result wraps ErrTimeout and no further attempt starts.
func Call(ctx context.Context, p RetryPolicy, b mapping.Backend, e mapping.Entity, op string, fn func(context.Context) error) error {
	attempt := 0
	err := backoff.RetryNotify(func() error {
		if cerr := ctx.Err(); cerr != nil {
			return backoff.Permanent(cerr)
		}
		attempt++
		err := fn(ctx)
		if err == nil || types.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		metrics.BackendRetries.WithLabelValues(string(b), op).Inc()
		log.Warn().
			Err(err).
			Str("backend", string(b)).
			Str("entity", string(e)).
			Str("op", op).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("retrying transient backend error")
	})

	err = classify(ctx, b, e, op, err)
	metrics.BackendRequests.WithLabelValues(string(b), string(e), op, Outcome(err)).Inc()
	return err
}

func classify(ctx context.Context, b mapping.Backend, e mapping.Entity, op string, err error) error {
	if err == nil {
		return nil
	}
	if cerr := ctx.Err(); cerr != nil && (errors.Is(err, cerr) || types.IsRetryable(err)) {
		if errors.Is(cerr, context.Canceled) {
			return fmt.Errorf("%s %s %s: %w", b, op, e, context.Canceled)
		}
		return fmt.Errorf("%w: %s %s %s", types.ErrTimeout, b, op, e)
	}
	if types.IsRetryable(err) {
		return fmt.Errorf("%w: %w", types.ErrBackendUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s %s", types.ErrTimeout, b, op, e)
	}
	return err
}

// Outcome maps an error to a bounded metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrNotFound):
		return "not_found"
	case errors.Is(err, types.ErrValidation):
		return "validation"
	case errors.Is(err, types.ErrConflict):
		return "conflict"
	case errors.Is(err, types.ErrTimeout):
		return "timeout"
	case errors.Is(err, types.ErrBackendUnavailable):
		return "unavailable"
	case errors.Is(err, types.ErrUnauthorized):
		return "unauthorized"
	}
	return "error"
}
