package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/compmap/internal/mapsearch"
	"github.com/sells-group/compmap/internal/store"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// No config.yaml in a fresh temp dir.
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.InDelta(t, 20, cfg.Server.RateLimit, 0.001)
	assert.Equal(t, 1000, cfg.Import.BatchSize)
	assert.Equal(t, mapsearch.DefaultOptions(), cfg.Map)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: comps.db
log:
  level: debug
  format: console
server:
  port: 9090
  cors_origins:
    - https://maps.example.com
map:
  cluster_cutoff: 13
  max_clusters: 250
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "comps.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://maps.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 13, cfg.Map.ClusterCutoff)
	assert.Equal(t, 250, cfg.Map.MaxClusters)
	// Defaults still apply for unset values
	assert.Equal(t, 500, cfg.Map.MaxProperties)
	assert.Equal(t, 100, cfg.Map.MaxPageSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("COMPMAP_STORE_DRIVER", "postgres")
	t.Setenv("COMPMAP_LOG_LEVEL", "warn")
	t.Setenv("COMPMAP_MAP_MAX_CLUSTERS", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 42, cfg.Map.MaxClusters)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config that passes validation in every mode.
func validDefaults() *Config {
	return &Config{
		Store:  store.Config{Driver: "sqlite", DatabaseURL: "comps.db", MaxConns: 10, MinConns: 2},
		Server: ServerConfig{Port: 8080, RateLimit: 10, RateBurst: 20},
		Map:    mapsearch.DefaultOptions(),
		Import: ImportConfig{BatchSize: 500, Concurrency: 2},
	}
}

func TestValidate_AllModes(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"serve", "query", "migrate", "import"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidate_Store(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be postgres or sqlite")
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg = validDefaults()
	cfg.Store.MinConns = 20
	err = cfg.Validate("migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_conns")
}

func TestValidate_Serve(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")

	cfg = validDefaults()
	cfg.Server.RateBurst = 0
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.rate_burst")

	cfg.Server.RateLimit = 0
	assert.NoError(t, cfg.Validate("serve"), "limiter disabled")

	// Server settings do not matter outside serve.
	cfg.Server.Port = -1
	assert.NoError(t, cfg.Validate("query"))
}

func TestValidate_Map(t *testing.T) {
	cfg := validDefaults()
	cfg.Map.DefaultPageSize = 200
	err := cfg.Validate("query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map.default_page_size")

	cfg = validDefaults()
	cfg.Map.ClusterCutoff = 40
	err = cfg.Validate("query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map.cluster_cutoff")
}

func TestValidate_Import(t *testing.T) {
	cfg := validDefaults()
	cfg.Import.BatchSize = 0
	cfg.Import.Concurrency = 99

	err := cfg.Validate("import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import.batch_size")
	assert.Contains(t, err.Error(), "import.concurrency")
}
