package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexListAcceptsSingleValue(t *testing.T) {
	var body struct {
		IDs FlexList[string] `json:"ids"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"ids": "a"}`), &body))
	assert.Equal(t, []string{"a"}, body.IDs.Distinct())

	require.NoError(t, json.Unmarshal([]byte(`{"ids": ["a", "b", "a"]}`), &body))
	assert.Equal(t, []string{"a", "b"}, body.IDs.Distinct())
	assert.False(t, body.IDs.HasZero())

	body.IDs = nil
	require.NoError(t, json.Unmarshal([]byte(`{"ids": null}`), &body))
	assert.Nil(t, body.IDs)
	assert.Nil(t, body.IDs.Distinct())

	require.NoError(t, json.Unmarshal([]byte(`{"ids": ["a", ""]}`), &body))
	assert.True(t, body.IDs.HasZero())

	assert.Error(t, json.Unmarshal([]byte(`{"ids": 7}`), &body))
}

func TestFlexDate(t *testing.T) {
	var body struct {
		From FlexDate `json:"from"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"from": "2026-03-02"}`), &body))
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), body.From.Time)

	require.NoError(t, json.Unmarshal([]byte(`{"from": "2026-03-02T18:45:00Z"}`), &body))
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), body.From.Time)

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from": "2026-03-02"}`, string(out))

	body.From = FlexDate{}
	require.NoError(t, json.Unmarshal([]byte(`{"from": ""}`), &body))
	assert.True(t, body.From.IsZero())
	out, err = json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from": null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"from": "03/02/2026"}`), &body))
	assert.Error(t, json.Unmarshal([]byte(`{"from": 20260302}`), &body))
}

func TestTruncateDay(t *testing.T) {
	ny := time.FixedZone("EST", -5*3600)
	got := TruncateDay(time.Date(2026, 3, 2, 22, 30, 0, 0, ny))
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), got)
}

func TestErrorCategories(t *testing.T) {
	cause := errors.New("driver said no")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", NewValidationError("email", "is required"), ErrValidation},
		{"conflict", &ConflictError{Entity: "users", Field: "email", Err: cause}, ErrConflict},
		{"transient", &TransientBackendError{Backend: "relational", Op: "create", Err: cause}, ErrTransient},
		{"configuration", &ConfigurationError{Problems: []string{"b", "a"}}, ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("service: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}

	assert.ErrorIs(t, &ConflictError{Err: cause}, cause)
	assert.True(t, IsRetryable(&TransientBackendError{Err: cause}))
	assert.False(t, IsRetryable(NewValidationError("x", "bad")))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, `validation failed for field "email": is required`, NewValidationError("email", "is required").Error())
	assert.Equal(t, "validation failed: body is empty", NewValidationError("", "body is empty").Error())
	assert.Equal(t, "configuration error: a; b", (&ConfigurationError{Problems: []string{"b", "a"}}).Error())
	assert.Equal(t, `users: value for "email" already exists`, (&ConflictError{Entity: "users", Field: "email"}).Error())
}
