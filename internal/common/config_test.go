package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "6h", config.Cache.TTL)
	assert.Equal(t, MaxErrorCount, config.Cache.MaxErrorCount)
	assert.Equal(t, 180, config.Cache.RetentionDays)
	assert.Equal(t, []string{"US"}, config.Scheduler.Countries)
	assert.False(t, config.Cache.ReadOnly)
	assert.False(t, config.IsProduction())
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig("/nonexistent/macrocal.toml")
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macrocal.toml")
	content := `
environment = "production"

[server]
port = 9090

[cache]
ttl = "2h"
read_only = true

[scheduler]
countries = ["US", "DE", "JP"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "2h", config.Cache.TTL)
	assert.True(t, config.Cache.ReadOnly)
	assert.Equal(t, []string{"US", "DE", "JP"}, config.Scheduler.Countries)
	assert.True(t, config.IsProduction())

	// Unspecified sections keep defaults
	assert.Equal(t, "localhost", config.Database.Host)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MACROCAL_PORT", "7001")
	t.Setenv("MACROCAL_DB_HOST", "db.internal")
	t.Setenv("MACROCAL_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("MACROCAL_CACHE_READ_ONLY", "true")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7001, config.Server.Port)
	assert.Equal(t, "db.internal", config.Database.Host)
	assert.Equal(t, "redis.internal:6379", config.Redis.Addr)
	assert.True(t, config.Redis.Enabled)
	assert.True(t, config.Cache.ReadOnly)
}

func TestLoadConfig_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macrocal.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = -1\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "localhost", Port: 5432, User: "macrocal", Password: "secret", Name: "macrocal", SSLMode: "disable"}
	assert.Equal(t,
		"host=localhost port=5432 user=macrocal password=secret dbname=macrocal sslmode=disable",
		db.DSN())
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("FINNHUB_API_KEY", "from-env")
	assert.Equal(t, "from-env", ResolveAPIKey("finnhub", "from-config"))
	assert.Equal(t, "from-config", ResolveAPIKey("eodhd", "from-config"))
	assert.Equal(t, "", ResolveAPIKey("unknown", ""))
}

func TestCacheTTLParsing(t *testing.T) {
	assert.Equal(t, FreshnessEconomicEvents, (&CacheConfig{TTL: "garbage"}).GetTTL())
	assert.Equal(t, "2h0m0s", (&CacheConfig{TTL: "2h"}).GetTTL().String())
}
