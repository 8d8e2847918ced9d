package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
directory:
  source: file
  file_path: testdata/repairers.yaml
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "repair-recommender", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 50.0, cfg.Server.RateLimit)
	assert.Equal(t, 100, cfg.Server.Burst)
	assert.Equal(t, 5000, cfg.Recommendation.FetchTimeout)
	assert.Equal(t, 2, cfg.Recommendation.FuzzyDistance)
	assert.Equal(t, AvailabilityOpeningHours, cfg.Availability.Source)
	assert.Equal(t, "Europe/Paris", cfg.Availability.Timezone)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5*time.Second, cfg.Recommendation.EngineConfig().FetchTimeout)
}

func TestLoadFromFile_RecommendationSection(t *testing.T) {
	path := writeConfig(t, `
directory:
  source: file
  file_path: repairers.yaml
recommendation:
  weights:
    distance: 0.4
    rating: 0.1
    specialization: 0.2
    price: 0.1
    availability: 0.2
  multipliers:
    high_urgency: {distance: 2, rating: 1, specialization: 1, price: 1, availability: 3}
  normalize_weights: true
  recommendation_limit: 5
  alternative_limit: 2
  fetch_timeout: 1500
  registry_path: registry.json
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	engine := cfg.Recommendation.EngineConfig()
	assert.Equal(t, 0.4, engine.Weights.Distance)
	assert.Equal(t, 3.0, engine.Multipliers.HighUrgency.Availability)
	assert.True(t, engine.NormalizeWeights)
	assert.Equal(t, 5, engine.RecommendationLimit)
	assert.Equal(t, 2, engine.AlternativeLimit)
	assert.Equal(t, 1500*time.Millisecond, engine.FetchTimeout)
	assert.Equal(t, "registry.json", cfg.Recommendation.RegistryPath)
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_MONGO_URI", "mongodb://mongo:27017")
	path := writeConfig(t, `
database:
  mongo:
    uri: ${TEST_MONGO_URI}
directory:
  source: mongo
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Database.Mongo.URI)
	assert.Equal(t, "repairs", cfg.Database.Mongo.Database)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "postgres needs a host",
			body:    "directory: {source: postgres}",
			wantErr: "database.postgres.host is required",
		},
		{
			name:    "unknown directory",
			body:    "directory: {source: csv}",
			wantErr: `directory.source "csv"`,
		},
		{
			name:    "file needs a path",
			body:    "directory: {source: file}",
			wantErr: "directory.file_path is required",
		},
		{
			name: "redis availability needs redis",
			body: `
directory: {source: file, file_path: x.yaml}
availability: {source: redis}`,
			wantErr: "database.redis.address is required",
		},
		{
			name: "cache needs redis",
			body: `
directory: {source: file, file_path: x.yaml, cache_ttl: 60000}`,
			wantErr: "directory.cache_ttl is set",
		},
		{
			name: "enabled worker needs a broker",
			body: `
directory: {source: file, file_path: x.yaml}
workers:
  find-optimal-repairers: {enabled: true}`,
			wantErr: "camunda.broker_address is required",
		},
		{
			name: "unknown availability",
			body: `
directory: {source: file, file_path: x.yaml}
availability: {source: calendar}`,
			wantErr: `availability.source "calendar"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"find-optimal-repairers": {Enabled: false, Timeout: 1000},
	}}

	assert.Equal(t, 1000, GetWorkerConfig(cfg, "find-optimal-repairers").Timeout)
	assert.False(t, IsWorkerEnabled(cfg, "find-optimal-repairers"))

	fallback := GetWorkerConfig(cfg, "other")
	assert.True(t, fallback.Enabled)
	assert.Equal(t, 30000, fallback.Timeout)
	assert.True(t, IsWorkerEnabled(cfg, "other"))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, GetDuration(250))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	dsn := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "repairs", SSLMode: "disable"}.GetDSN()
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=repairs sslmode=disable", dsn)
}
