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

// Config holds the gamedex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Search    SearchConfig    `yaml:"search"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the key-value store connection settings. The store
// backs the embedding and result caches and the redis corpus source; with no
// addresses configured all three are disabled.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds ranking and retrieval settings.
type SearchConfig struct {
	K1                float64  `yaml:"bm25_k1"`
	B                 float64  `yaml:"bm25_b"`
	TitleWeight       float64  `yaml:"title_weight"`
	GenreWeight       float64  `yaml:"genre_weight"`
	DescriptionWeight float64  `yaml:"description_weight"`
	LexicalWeight     float64  `yaml:"lexical_weight"`
	SemanticWeight    float64  `yaml:"semantic_weight"`
	TopK              int      `yaml:"top_k"`
	RiskThreshold     float64  `yaml:"risk_threshold"`
	ExactThreshold    int      `yaml:"exact_search_threshold"`
	VectorTimeoutMs   int      `yaml:"vector_timeout_ms"`
	ResultCacheTTLSec int      `yaml:"result_cache_ttl_sec"`
	ExtraStopWords    []string `yaml:"extra_stop_words"`
}

// CorpusConfig selects where the game catalog is loaded from.
type CorpusConfig struct {
	Source         string `yaml:"source"` // static, parquet, redis
	ParquetPath    string `yaml:"parquet_path"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`
}

// EmbeddingConfig holds embedding provider settings. An empty API key
// disables semantic retrieval entirely.
type EmbeddingConfig struct {
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
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
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Search.K1 <= 0 {
		c.Search.K1 = 1.5
	}
	if c.Search.B <= 0 {
		c.Search.B = 0.75
	}
	if c.Search.TitleWeight <= 0 {
		c.Search.TitleWeight = 3
	}
	if c.Search.GenreWeight <= 0 {
		c.Search.GenreWeight = 2
	}
	if c.Search.DescriptionWeight <= 0 {
		c.Search.DescriptionWeight = 1
	}
	if c.Search.LexicalWeight <= 0 && c.Search.SemanticWeight <= 0 {
		c.Search.LexicalWeight = 0.5
		c.Search.SemanticWeight = 0.5
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = 200
	}
	if c.Search.RiskThreshold <= 0 {
		c.Search.RiskThreshold = 5.0
	}
	if c.Search.ExactThreshold <= 0 {
		c.Search.ExactThreshold = 4096
	}
	if c.Search.VectorTimeoutMs <= 0 {
		c.Search.VectorTimeoutMs = 2000
	}
	if c.Search.ResultCacheTTLSec <= 0 {
		c.Search.ResultCacheTTLSec = 300
	}
	if c.Corpus.Source == "" {
		c.Corpus.Source = "static"
	}
	if c.Corpus.RedisKeyPrefix == "" {
		c.Corpus.RedisKeyPrefix = "game:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Corpus.Source {
	case "static":
	case "parquet":
		if c.Corpus.ParquetPath == "" {
			return fmt.Errorf("corpus.parquet_path is required for the parquet source")
		}
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis corpus source")
		}
	default:
		return fmt.Errorf("corpus.source must be static, parquet or redis, got %q", c.Corpus.Source)
	}
	if c.Search.LexicalWeight < 0 || c.Search.SemanticWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	if c.Search.LexicalWeight+c.Search.SemanticWeight <= 0 {
		return fmt.Errorf("at least one fusion weight must be positive")
	}
	if c.Embedding.APIKey != "" && c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required when embedding.api_key is set")
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
