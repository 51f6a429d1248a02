// connection.go
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

package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/localnerve/wellnessdb/internal/config"
	"github.com/localnerve/wellnessdb/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Credentials select the role and connection budget of a pool.
type Credentials struct {
	User     string
	Password string
	Limit    int
}

// Connect opens the interactive pool used by request handling.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	return open(cfg, "app", Credentials{
		User:     cfg.DBAppUser,
		Password: cfg.DBAppPassword,
		Limit:    cfg.DBAppConnectionLimit,
	})
}

// ConnectMaintenance opens the pool reserved for aggregation rebuilds, so a rebuild
// cannot exhaust the connections interactive requests depend on.
func ConnectMaintenance(cfg *config.Config) (*gorm.DB, error) {
	return open(cfg, "maintenance", Credentials{
		User:     cfg.DBMaintenanceUser,
		Password: cfg.DBMaintenancePassword,
		Limit:    cfg.DBMaintenanceConnectionLimit,
	})
}

// Dialector returns the gorm dialector for the configured DB_TYPE.
func Dialector(cfg *config.Config, creds Credentials) (gorm.Dialector, error) {
	switch cfg.DBType {
	case "mysql", "mariadb":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			creds.User,
			creds.Password,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBDatabase,
		)
		return mysql.Open(dsn), nil

	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost,
			creds.User,
			creds.Password,
			cfg.DBDatabase,
			cfg.DBPort,
		)
		return postgres.Open(dsn), nil

	case "sqlite":
		// For SQLite, DBDatabase is the file path; credentials do not apply.
		return sqlite.Open(SQLiteDSN(cfg.DBDatabase)), nil

	case "sqlserver", "mssql":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
			creds.User,
			creds.Password,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBDatabase,
		)
		return sqlserver.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
}

// SQLiteDSN adds the pragmas every SQLite connection needs to a file path.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func open(cfg *config.Config, pool string, creds Credentials) (*gorm.DB, error) {
	dialector, err := Dialector(cfg, creds)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", pool, err)
	}

	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("failed to install tracing plugin: %w", err)
		}
	}

	// Get underlying SQL DB for connection pool configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY under load.
	limit := creds.Limit
	if cfg.DBType == "sqlite" {
		limit = 1
	}
	sqlDB.SetMaxOpenConns(limit)
	sqlDB.SetMaxIdleConns(max(limit/2, 1))
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	log.Info().
		Str("pool", pool).
		Str("db_type", cfg.DBType).
		Str("database", cfg.DBDatabase).
		Int("max_conns", limit).
		Msg("connected to database")

	return db, nil
}

// GormConfig returns the shared gorm configuration. Driver errors are translated so
// duplicate keys surface as gorm.ErrDuplicatedKey.
func GormConfig() *gorm.Config {
	level, echo := gormLevel(zerolog.GlobalLevel())
	return &gorm.Config{
		Logger: logger.New(gormWriter{level: echo}, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	}
}

// gormLevel maps the zerolog global level to a gorm log level and the zerolog level
// gorm lines are written at. An unset global level (trace) means warn, so statements
// are only echoed once LOG_LEVEL=debug.
func gormLevel(global zerolog.Level) (logger.LogLevel, zerolog.Level) {
	switch {
	case global == zerolog.DebugLevel:
		return logger.Info, zerolog.DebugLevel
	case global <= zerolog.WarnLevel:
		return logger.Warn, zerolog.WarnLevel
	case global < zerolog.NoLevel:
		return logger.Error, zerolog.ErrorLevel
	}
	return logger.Silent, zerolog.Disabled
}

// gormWriter forwards gorm's log lines to zerolog.
type gormWriter struct {
	level zerolog.Level
}

func (w gormWriter) Printf(format string, args ...any) {
	log.WithLevel(w.level).Str("component", "gorm").Msgf(format, args...)
}

// AutoMigrate runs automatic migrations for all row models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(models.Rows()...)
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
