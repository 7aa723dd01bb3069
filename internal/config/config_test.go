package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "blackbox", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "five_inch", cfg.Analysis.ProfileID)
	assert.Equal(t, "average", cfg.Analysis.Level)
	assert.Empty(t, cfg.Analysis.ProfilesFile)

	assert.False(t, cfg.Analysis.Cache.Enabled)
	assert.Equal(t, "blackbox:log:", cfg.Analysis.Cache.ReportKeyPrefix)
	assert.Equal(t, ":report", cfg.Analysis.Cache.ReportSuffix)
	assert.Equal(t, 3600, cfg.Analysis.Cache.ReportTTL)
	assert.False(t, cfg.Analysis.Storage.Enabled)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "15432")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("ANALYSIS_PROFILE", "seven_inch")
	t.Setenv("ANALYSIS_LEVEL", "expert")
	t.Setenv("ANALYSIS_PROFILES_FILE", "/etc/analyzer/profiles.yaml")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_REPORT_TTL", "600")
	t.Setenv("STORAGE_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 15432, cfg.Database.Port)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, "seven_inch", cfg.Analysis.ProfileID)
	assert.Equal(t, "expert", cfg.Analysis.Level)
	assert.Equal(t, "/etc/analyzer/profiles.yaml", cfg.Analysis.ProfilesFile)
	assert.True(t, cfg.Analysis.Cache.Enabled)
	assert.Equal(t, 600, cfg.Analysis.Cache.ReportTTL)
	assert.True(t, cfg.Analysis.Storage.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("CACHE_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.False(t, cfg.Analysis.Cache.Enabled)
}
