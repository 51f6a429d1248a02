package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
		field  string
	}{
		{"validation", types.NewValidationError("mood", "is required"), fiber.StatusBadRequest, "validation", "mood"},
		{"conflict", &types.ConflictError{Entity: "users", Field: "email"}, fiber.StatusConflict, "conflict", "email"},
		{"not found", fmt.Errorf("user x: %w", types.ErrNotFound), fiber.StatusNotFound, "not_found", ""},
		{"timeout", types.ErrTimeout, fiber.StatusGatewayTimeout, "timeout", ""},
		{"unavailable", fmt.Errorf("create: %w", types.ErrBackendUnavailable), fiber.StatusServiceUnavailable, "unavailable", ""},
		{"transient", &types.TransientBackendError{Err: errors.New("reset")}, fiber.StatusServiceUnavailable, "unavailable", ""},
		{"unauthorized", types.ErrUnauthorized, fiber.StatusBadGateway, "backend_unauthorized", ""},
		{"custom", &types.CustomError{Code: fiber.StatusTeapot, Message: "short and stout", Type: "teapot"}, fiber.StatusTeapot, "teapot", ""},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError, "unknown", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return DomainErrorResponse(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body ErrorResponseStruct
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.typ, body.Type)
			assert.Equal(t, tt.field, body.Field)
			assert.False(t, body.Ok)
			assert.Equal(t, "/", body.URL)
		})
	}
}

func TestPingService(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	assert.NoError(t, PingService("http://"+ln.Addr().String(), time.Second))

	addr := ln.Addr().String()
	ln.Close()
	assert.Error(t, PingService("http://"+addr, 200*time.Millisecond))

	assert.Error(t, PingService("not a url", time.Second))
}

func TestDialAddressDefaults(t *testing.T) {
	addr, err := dialAddress("https://api.airtable.com/v0")
	require.NoError(t, err)
	assert.Equal(t, "api.airtable.com:443", addr)

	addr, err = dialAddress("http://localhost")
	require.NoError(t, err)
	assert.Equal(t, "localhost:80", addr)
}

func TestSetLogLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	SetLogLevel("DEBUG")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	SetLogLevel("warning")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	SetLogLevel("nonsense")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
