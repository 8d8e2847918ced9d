// internal/common/config/config.go
package config

import (
	"fmt"

	"repair-recommender/internal/recommendation"
)

// Config is the main application configuration struct.
type Config struct {
	App            AppConfig               `mapstructure:"app"`
	Camunda        CamundaConfig           `mapstructure:"camunda"`
	Database       DatabaseConfig          `mapstructure:"database"`
	Workers        map[string]WorkerConfig `mapstructure:"workers"`
	Logging        LoggingConfig           `mapstructure:"logging"`
	Server         ServerConfig            `mapstructure:"server"`
	Recommendation RecommendationConfig    `mapstructure:"recommendation"`
	Directory      DirectoryConfig         `mapstructure:"directory"`
	Availability   AvailabilityConfig      `mapstructure:"availability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Mongo         MongoConfig         `mapstructure:"mongo"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Address      string  `mapstructure:"address"`
	RateLimit    float64 `mapstructure:"rate_limit"` // requests per second
	Burst        int     `mapstructure:"burst"`
	ReadTimeout  int     `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int     `mapstructure:"write_timeout"` // milliseconds
}

// RecommendationConfig holds the scoring settings plus the keyword registry.
type RecommendationConfig struct {
	Engine recommendation.Config `mapstructure:",squash"`

	FetchTimeout  int    `mapstructure:"fetch_timeout"` // milliseconds
	RegistryPath  string `mapstructure:"registry_path"`
	FuzzyDistance int    `mapstructure:"fuzzy_distance"`
}

// EngineConfig returns the engine settings with the fetch timeout applied.
func (r RecommendationConfig) EngineConfig() recommendation.Config {
	cfg := r.Engine
	cfg.FetchTimeout = GetDuration(r.FetchTimeout)
	return cfg
}

// Directory sources.
const (
	DirectoryPostgres      = "postgres"
	DirectoryElasticsearch = "elasticsearch"
	DirectoryMongo         = "mongo"
	DirectoryFile          = "file"
)

// DirectoryConfig selects where repairers are read from.
type DirectoryConfig struct {
	Source     string `mapstructure:"source"`
	Table      string `mapstructure:"table"`
	Index      string `mapstructure:"index"`
	MaxHits    int    `mapstructure:"max_hits"`
	Collection string `mapstructure:"collection"`
	FilePath   string `mapstructure:"file_path"`

	CacheTTL       int    `mapstructure:"cache_ttl"` // milliseconds, 0 disables the cache
	CacheKeyPrefix string `mapstructure:"cache_key_prefix"`
}

// Availability sources.
const (
	AvailabilityOpeningHours = "opening_hours"
	AvailabilityRedis        = "redis"
	AvailabilityStatic       = "static"
)

// AvailabilityConfig selects how availability flags are derived.
type AvailabilityConfig struct {
	Source    string `mapstructure:"source"`
	Timezone  string `mapstructure:"timezone"`
	KeyPrefix string `mapstructure:"key_prefix"`
	MinLead   int    `mapstructure:"min_lead"` // milliseconds
}
