package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the perch API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Cache       CacheConfig       `yaml:"cache"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Moderation  ModerationConfig  `yaml:"moderation"`
	Trending    TrendingConfig    `yaml:"trending"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CatalogConfig holds person catalog settings.
type CatalogConfig struct {
	EmbeddingsPath string `yaml:"embeddings_path"`
}

// CacheConfig holds search result cache settings.
type CacheConfig struct {
	TTLSec     int `yaml:"ttl_sec"`
	MaxEntries int `yaml:"max_entries"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider    string      `yaml:"provider"` // informational label for metrics
	APIKey      string      `yaml:"api_key"`
	BaseURL     string      `yaml:"base_url"`
	Model       string      `yaml:"model"`
	Dimensions  int         `yaml:"dimensions"`
	CacheDriver string      `yaml:"cache_driver"` // memory, redis (default: memory)
	Redis       RedisConfig `yaml:"redis"`
}

// RedisConfig holds the optional Redis embedding cache backend.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ModerationConfig holds query moderation settings.
type ModerationConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

// TrendingConfig holds search log and clustering settings.
type TrendingConfig struct {
	LogPath          string  `yaml:"log_path"`
	SaveEvery        int     `yaml:"save_every"`
	ClusterThreshold float64 `yaml:"cluster_threshold"`
}

// LeaderboardConfig holds leaderboard storage settings.
type LeaderboardConfig struct {
	DBPath string `yaml:"db_path"`
}

// AuthConfig holds CAS SSO and session token settings. An empty jwt_secret
// disables authentication.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
	CASServerURL  string `yaml:"cas_server_url"`
	FrontendURL   string `yaml:"frontend_url"`
	BackendURL    string `yaml:"backend_url"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Catalog.EmbeddingsPath == "" {
		c.Catalog.EmbeddingsPath = "data/embeddings.json"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 100
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.CacheDriver == "" {
		c.Embedding.CacheDriver = "memory"
	}
	if c.Embedding.Redis.ReadinessTimeout <= 0 {
		c.Embedding.Redis.ReadinessTimeout = 10
	}
	if c.Moderation.Model == "" {
		c.Moderation.Model = "gpt-4o-mini"
	}
	if c.Trending.LogPath == "" {
		c.Trending.LogPath = "data/search_log.json"
	}
	if c.Trending.SaveEvery <= 0 {
		c.Trending.SaveEvery = 10
	}
	if c.Trending.ClusterThreshold <= 0 {
		c.Trending.ClusterThreshold = 0.75
	}
	if c.Leaderboard.DBPath == "" {
		c.Leaderboard.DBPath = "data/leaderboard.db"
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = 24
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required")
	}
	switch c.Embedding.CacheDriver {
	case "memory", "redis":
		// ok
	default:
		return fmt.Errorf("embedding.cache_driver must be \"memory\" or \"redis\", got %q", c.Embedding.CacheDriver)
	}
	if c.Embedding.CacheDriver == "redis" && len(c.Embedding.Redis.Addrs) == 0 {
		return fmt.Errorf("embedding.redis.addrs is required when cache_driver is redis")
	}
	if c.Trending.ClusterThreshold > 1 {
		return fmt.Errorf("trending.cluster_threshold must be at most 1, got %v", c.Trending.ClusterThreshold)
	}
	if c.Auth.JWTSecret != "" {
		if c.Auth.CASServerURL == "" {
			return fmt.Errorf("auth.cas_server_url is required when jwt_secret is set")
		}
		if c.Auth.FrontendURL == "" || c.Auth.BackendURL == "" {
			return fmt.Errorf("auth.frontend_url and auth.backend_url are required when jwt_secret is set")
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
