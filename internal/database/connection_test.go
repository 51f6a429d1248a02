package database

import (
	"path/filepath"
	"testing"

	"github.com/localnerve/wellnessdb/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestDialector(t *testing.T) {
	creds := Credentials{User: "u", Password: "p", Limit: 2}
	for dbType, want := range map[string]string{
		"postgres":   "postgres",
		"postgresql": "postgres",
		"mysql":      "mysql",
		"mariadb":    "mysql",
		"sqlserver":  "sqlserver",
		"sqlite":     "sqlite",
	} {
		d, err := Dialector(&config.Config{DBType: dbType, DBHost: "h", DBPort: "1", DBDatabase: "db"}, creds)
		require.NoError(t, err, dbType)
		assert.Equal(t, want, d.Name(), dbType)
	}

	_, err := Dialector(&config.Config{DBType: "oracle"}, creds)
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "w.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", SQLiteDSN("w.db"))
	assert.Contains(t, SQLiteDSN("file:w.db?cache=shared"), "cache=shared&_pragma=")
}

func TestConnectAndMigrateSQLite(t *testing.T) {
	cfg := &config.Config{
		DBType:               "sqlite",
		DBDatabase:           filepath.Join(t.TempDir(), "wellness.db"),
		DBAppConnectionLimit: 10,
	}
	db, err := Connect(cfg)
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))
	for _, table := range []string{"users", "daily_checkins", "insights", "daily_metrics", "weekly_metrics"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	assert.NoError(t, Close(db))
}

func TestGormLevelFollowsZerolog(t *testing.T) {
	tests := []struct {
		global zerolog.Level
		want   logger.LogLevel
		echo   zerolog.Level
	}{
		{zerolog.TraceLevel, logger.Warn, zerolog.WarnLevel},
		{zerolog.DebugLevel, logger.Info, zerolog.DebugLevel},
		{zerolog.InfoLevel, logger.Warn, zerolog.WarnLevel},
		{zerolog.WarnLevel, logger.Warn, zerolog.WarnLevel},
		{zerolog.ErrorLevel, logger.Error, zerolog.ErrorLevel},
		{zerolog.FatalLevel, logger.Error, zerolog.ErrorLevel},
		{zerolog.Disabled, logger.Silent, zerolog.Disabled},
	}
	for _, tt := range tests {
		level, echo := gormLevel(tt.global)
		assert.Equal(t, tt.want, level, tt.global.String())
		assert.Equal(t, tt.echo, echo, tt.global.String())
	}
}

func TestGormConfigDefaultsToWarn(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	// zerolog's untouched global level is trace.
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	level, _ := gormLevel(zerolog.GlobalLevel())
	assert.Equal(t, logger.Warn, level)
	assert.NotNil(t, GormConfig().Logger)
}
