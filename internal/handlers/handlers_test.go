package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/wellnessdb/internal/adapter/relational"
	"github.com/localnerve/wellnessdb/internal/app"
	"github.com/localnerve/wellnessdb/internal/config"
	"github.com/localnerve/wellnessdb/internal/gate"
	"github.com/localnerve/wellnessdb/internal/handlers"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const opsToken = "ops-secret"

// setupServer builds the API over an in-memory SQLite backend.
func setupServer(t *testing.T) *fiber.App {
	t.Helper()
	cfg := &config.Config{
		DataBackend:            "relational",
		DBType:                 "sqlite",
		DBDatabase:             "wellness.db",
		AggregationConcurrency: 2,
		InsightLookbackDays:    7,
		BackendMaxRetries:      1,
		BackendRetryInitial:    time.Millisecond,
		OpsToken:               opsToken,
	}
	g, err := gate.Resolve(cfg.DataBackend, mapping.Default())
	require.NoError(t, err)

	a := relational.New(testutil.NewSQLite(t), g.Table, app.RetryPolicy(cfg))
	wired := app.Assemble(cfg, g, a, a, nil)

	server := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	handlers.Register(server.Group("/api"), wired)
	return server
}

func do(t *testing.T, server *fiber.App, method, path string, body any, headers ...string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := server.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func createUser(t *testing.T, server *fiber.App, email string) string {
	t.Helper()
	resp, body := do(t, server, "POST", "/api/users", map[string]any{
		"email":                          email,
		"primary_need":                   "medication",
		"cycle_stage":                    "follicular",
		"medication_status":              "taking",
		"confidence_managing_symptoms":   6,
		"confidence_talking_to_provider": 6,
		"confidence_daily_routine":       6,
		"baseline_completed":             true,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	return body["id"].(string)
}

func TestUserRoutes(t *testing.T) {
	server := setupServer(t)
	id := createUser(t, server, "routes@example.com")

	resp, body := do(t, server, "GET", "/api/users/"+id, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "routes@example.com", body["email"])
	assert.Equal(t, "1.0.0", resp.Header.Get("X-Api-Version"))

	resp, body = do(t, server, "PATCH", "/api/users/"+id, map[string]any{"nickname": "R"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "R", body["nickname"])

	resp, body = do(t, server, "POST", "/api/users", map[string]any{"email": "routes@example.com"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", body["type"])
	assert.Equal(t, "email", body["field"])

	resp, body = do(t, server, "GET", "/api/users/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["ok"])
}

func TestCreateUserValidation(t *testing.T) {
	server := setupServer(t)

	resp, body := do(t, server, "POST", "/api/users", map[string]any{"email": "v@example.com", "favorite_color": "blue"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", body["type"])
	assert.Equal(t, "favorite_color", body["field"])

	req := httptest.NewRequest("POST", "/api/users", bytes.NewReader([]byte(`[1,2]`)))
	req.Header.Set("Content-Type", "application/json")
	r, err := server.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, r.StatusCode)
}

func TestCheckinRoutes(t *testing.T) {
	server := setupServer(t)
	id := createUser(t, server, "checkins@example.com")

	resp, body := do(t, server, "POST", "/api/users/"+id+"/checkins", map[string]any{
		"mood":             "good",
		"confidence":       7,
		"medication_taken": "yes",
		"side_effects":     "headache",
		"date_submitted":   "2026-03-02",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, []any{"headache"}, body["side_effects"])

	_, _ = do(t, server, "POST", "/api/users/"+id+"/checkins", map[string]any{
		"mood": "ok", "confidence": 5, "medication_taken": "no", "date_submitted": "2026-03-03",
	})

	req := httptest.NewRequest("GET", "/api/users/"+id+"/checkins?order=asc&limit=10", nil)
	r, err := server.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, r.StatusCode)
	var list []map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, "2026-03-02", list[0]["date_submitted"])

	resp, body = do(t, server, "GET", "/api/users/"+id+"/checkins?limit=-3", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "limit", body["field"])

	resp, _ = do(t, server, "POST", "/api/users/00000000-0000-0000-0000-000000000000/checkins", map[string]any{"mood": "ok"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestInsightAndMetricRoutes(t *testing.T) {
	server := setupServer(t)
	id := createUser(t, server, "insights@example.com")

	for _, d := range []string{"2026-03-02", "2026-03-03", "2026-03-04"} {
		resp, body := do(t, server, "POST", "/api/users/"+id+"/checkins", map[string]any{
			"mood": "low", "confidence": 3, "medication_taken": "no", "date_submitted": d,
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	}

	resp, body := do(t, server, "GET", "/api/users/"+id+"/insights/2026-03-04", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "medication_adherence", body["type"])

	resp, body = do(t, server, "GET", "/api/users/"+id+"/insights/March-4", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "date", body["field"])

	resp, body = do(t, server, "GET", "/api/users/"+id+"/metrics?from=2026-03-05&to=2026-03-01", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "to", body["field"])

	// Nothing is visible until a refresh publishes it.
	resp, body = do(t, server, "GET", "/api/users/"+id+"/metrics?from=2026-03-01&to=2026-03-07", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, body["daily"])

	auth := []string{"Authorization", "Bearer " + opsToken}
	resp, body = do(t, server, "POST", "/api/ops/metrics/daily", map[string]any{"user_ids": id}, auth...)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, float64(1), body["users"])

	resp, body = do(t, server, "POST", "/api/ops/metrics/weekly", nil, auth...)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	resp, body = do(t, server, "GET", "/api/users/"+id+"/metrics?from=2026-03-01&to=2026-03-07", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["daily"], 3)
	assert.Len(t, body["weekly"], 1)
}

func TestOpsRoutesRequireToken(t *testing.T) {
	server := setupServer(t)

	resp, body := do(t, server, "POST", "/api/ops/schema-extras", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "ops.authorization", body["type"])

	resp, _ = do(t, server, "POST", "/api/ops/schema-extras", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body = do(t, server, "POST", "/api/ops/schema-extras", nil, "Authorization", "Bearer "+opsToken)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, body["applied"])

	resp, _ = do(t, server, "POST", "/api/ops/views/refresh", nil, "Authorization", "Bearer "+opsToken)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestOpsScopeValidation(t *testing.T) {
	server := setupServer(t)
	auth := []string{"Authorization", "Bearer " + opsToken}

	resp, body := do(t, server, "POST", "/api/ops/metrics/daily", map[string]any{"from": "2026-03-05", "to": "2026-03-01"}, auth...)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "to", body["field"])

	resp, _ = do(t, server, "POST", "/api/ops/metrics/daily", map[string]any{"from": "not-a-date"}, auth...)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, server, "POST", "/api/ops/metrics/daily", map[string]any{"user_ids": []string{"u1", ""}}, auth...)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "user_ids", body["field"])
}

func TestHealthRoute(t *testing.T) {
	server := setupServer(t)

	resp, body := do(t, server, "GET", "/api/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "relational", body["backend"])
}

func TestVersionAlias(t *testing.T) {
	server := setupServer(t)

	resp, _ := do(t, server, "GET", "/api/health", nil, "X-Api-Version", "1")
	assert.Equal(t, "1.0.0", resp.Header.Get("X-Api-Version"))
}
