// error.go
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

package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// CustomError carries an HTTP status and an error type tag to the response layer.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// Category sentinels. Concrete errors below match them with errors.Is.
var (
	// ErrValidation marks bad, unmapped or out-of-range input. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a uniqueness violation. Never retried.
	ErrConflict = errors.New("conflict")

	// ErrTransient marks a single failed attempt that may succeed if repeated.
	ErrTransient = errors.New("transient backend error")

	// ErrBackendUnavailable is returned once retries of a transient error are exhausted.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrTimeout is returned when the caller's deadline expires during an operation.
	ErrTimeout = errors.New("backend operation timed out")

	// ErrUnauthorized is returned when the backend rejects the credentials. Never retried.
	ErrUnauthorized = errors.New("backend rejected credentials")

	// ErrNotFound is returned by single-record lookups that match nothing.
	ErrNotFound = errors.New("not found")

	// ErrConfiguration marks a startup configuration problem.
	ErrConfiguration = errors.New("configuration error")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConflictError reports which unique field collided.
type ConflictError struct {
	Entity string
	Field  string
	Err    error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: value for %q already exists", e.Entity, e.Field)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) Unwrap() error { return e.Err }

// TransientBackendError wraps a retryable failure from one attempt.
type TransientBackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *TransientBackendError) Error() string {
	return fmt.Sprintf("%s %s: transient: %v", e.Backend, e.Op, e.Err)
}

func (e *TransientBackendError) Is(target error) bool { return target == ErrTransient }

func (e *TransientBackendError) Unwrap() error { return e.Err }

// ConfigurationError lists every problem found while validating startup configuration.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	problems := append([]string(nil), e.Problems...)
	sort.Strings(problems)
	return "configuration error: " + strings.Join(problems, "; ")
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
