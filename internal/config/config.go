// config.go
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

package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/types"
)

// Config holds the process configuration, read once from the environment.
type Config struct {
	Port     string
	LogLevel string

	// DataBackend is the feature flag selecting the active backend.
	DataBackend string

	// Relational backend
	DBType                       string
	DBHost                       string
	DBPort                       string
	DBDatabase                   string
	DBAppUser                    string
	DBAppPassword                string
	DBAppConnectionLimit         int
	DBMaintenanceUser            string
	DBMaintenancePassword        string
	DBMaintenanceConnectionLimit int

	// Record store backend
	DocStoreURL                  string
	DocStoreBaseID               string
	DocStoreAPIKey               string
	DocStoreRateLimit            float64
	DocStoreMaintenanceRateLimit float64

	// Adapter behaviour
	BackendMaxRetries   int
	BackendRetryInitial time.Duration
	BackendTimeout      time.Duration

	AggregationConcurrency int
	InsightLookbackDays    int

	// OpsToken guards the operational routes. Empty disables them.
	OpsToken string

	OTEL OTELConfig
}

// OTELConfig configures trace export.
type OTELConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	SampleRatio float64
	ServiceName string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                         getEnv("PORT", "3000"),
		LogLevel:                     getEnv("LOG_LEVEL", "info"),
		DataBackend:                  getEnv("DATA_BACKEND", ""),
		DBType:                       getEnv("DB_TYPE", "postgres"),
		DBHost:                       getEnv("DB_HOST", "localhost"),
		DBPort:                       getEnv("DB_PORT", "5432"),
		DBDatabase:                   getEnv("DB_DATABASE", ""),
		DBAppUser:                    getEnv("DB_APP_USER", ""),
		DBAppPassword:                getEnv("DB_APP_PASSWORD", ""),
		DBAppConnectionLimit:         getEnvAsInt("DB_APP_CONNECTION_LIMIT", 10),
		DBMaintenanceUser:            getEnv("DB_MAINTENANCE_USER", ""),
		DBMaintenancePassword:        getEnv("DB_MAINTENANCE_PASSWORD", ""),
		DBMaintenanceConnectionLimit: getEnvAsInt("DB_MAINTENANCE_CONNECTION_LIMIT", 2),
		DocStoreURL:                  getEnv("DOCSTORE_URL", "https://api.airtable.com/v0"),
		DocStoreBaseID:               getEnv("DOCSTORE_BASE_ID", ""),
		DocStoreAPIKey:               getEnv("DOCSTORE_API_KEY", ""),
		DocStoreRateLimit:            getEnvAsFloat("DOCSTORE_RATE_LIMIT", 5),
		DocStoreMaintenanceRateLimit: getEnvAsFloat("DOCSTORE_MAINTENANCE_RATE_LIMIT", 1),
		BackendMaxRetries:            getEnvAsInt("BACKEND_MAX_RETRIES", 3),
		BackendRetryInitial:          getEnvAsDuration("BACKEND_RETRY_INITIAL", 100*time.Millisecond),
		BackendTimeout:               getEnvAsDuration("BACKEND_TIMEOUT", 10*time.Second),
		AggregationConcurrency:       getEnvAsInt("AGGREGATION_CONCURRENCY", 4),
		InsightLookbackDays:          getEnvAsInt("INSIGHT_LOOKBACK_DAYS", 7),
		OpsToken:                     getEnv("OPS_TOKEN", ""),
		OTEL: OTELConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getEnvAsBool("OTEL_INSECURE", true),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "wellnessdb"),
		},
	}

	if cfg.DataBackend == "" {
		if v := os.Getenv("USE_RELATIONAL_BACKEND"); v != "" && !isTruthy(v) {
			cfg.DataBackend = string(mapping.Document)
		} else {
			cfg.DataBackend = string(mapping.Relational)
		}
	}

	if cfg.DBMaintenanceUser == "" {
		cfg.DBMaintenanceUser = cfg.DBAppUser
		cfg.DBMaintenancePassword = cfg.DBAppPassword
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed value for the selected backend.
func (c *Config) Validate() error {
	var problems []string

	backend, err := mapping.ParseBackend(c.DataBackend)
	if err != nil {
		problems = append(problems, fmt.Sprintf("DATA_BACKEND: %v", err))
	}

	switch backend {
	case mapping.Relational:
		if c.DBDatabase == "" {
			problems = append(problems, "DB_DATABASE is required")
		}
		if c.DBType != "sqlite" && c.DBAppUser == "" {
			problems = append(problems, "DB_APP_USER is required")
		}
		if c.DBAppConnectionLimit < 1 {
			problems = append(problems, "DB_APP_CONNECTION_LIMIT must be positive")
		}
		if c.DBMaintenanceConnectionLimit < 1 {
			problems = append(problems, "DB_MAINTENANCE_CONNECTION_LIMIT must be positive")
		}
	case mapping.Document:
		if c.DocStoreBaseID == "" {
			problems = append(problems, "DOCSTORE_BASE_ID is required")
		}
		if c.DocStoreAPIKey == "" {
			problems = append(problems, "DOCSTORE_API_KEY is required")
		}
		if _, err := url.Parse(c.DocStoreURL); err != nil || c.DocStoreURL == "" {
			problems = append(problems, "DOCSTORE_URL must be a URL")
		}
		if c.DocStoreRateLimit <= 0 || c.DocStoreMaintenanceRateLimit <= 0 {
			problems = append(problems, "DOCSTORE_RATE_LIMIT values must be positive")
		}
	}

	if c.BackendMaxRetries < 0 {
		problems = append(problems, "BACKEND_MAX_RETRIES must not be negative")
	}
	if c.InsightLookbackDays < 1 {
		problems = append(problems, "INSIGHT_LOOKBACK_DAYS must be at least 1")
	}
	if c.AggregationConcurrency < 1 {
		problems = append(problems, "AGGREGATION_CONCURRENCY must be at least 1")
	}

	if len(problems) > 0 {
		return &types.ConfigurationError{Problems: problems}
	}
	return nil
}

// Backend returns the backend selected by the feature flag.
func (c *Config) Backend() mapping.Backend {
	b, err := mapping.ParseBackend(c.DataBackend)
	if err != nil {
		return mapping.Relational
	}
	return b
}

// PostgresURL builds a pgx connection string for the maintenance role.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBMaintenanceUser, c.DBMaintenancePassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBDatabase,
		RawQuery: fmt.Sprintf("sslmode=disable&pool_max_conns=%d", c.DBMaintenanceConnectionLimit),
	}
	return u.String()
}

// IsPostgres reports whether the relational dialect is PostgreSQL.
func (c *Config) IsPostgres() bool {
	return c.DBType == "postgres" || c.DBType == "postgresql"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	return isTruthy(valueStr)
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// isTruthy accepts 1, true, yes, y and on, case-insensitively.
func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
