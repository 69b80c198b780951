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

// Config holds the docqa API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Completion CompletionConfig `yaml:"completion"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	Tokens []string `yaml:"tokens"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CompletionConfig holds completion provider settings. API keys come
// from the environment, not from the YAML file.
type CompletionConfig struct {
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	MaxRetries      int    `yaml:"max_retries"`
	TimeoutSec      int    `yaml:"timeout_sec"`
	MaxAnswerTokens int    `yaml:"max_answer_tokens"`
}

// IngestConfig holds document ingestion and retrieval settings.
type IngestConfig struct {
	ChunkSize          int   `yaml:"chunk_size"`
	ChunkOverlap       int   `yaml:"chunk_overlap"`
	TopK               int   `yaml:"top_k"`
	DownloadTimeoutSec int   `yaml:"download_timeout_sec"`
	MaxDocumentBytes   int64 `yaml:"max_document_bytes"`
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

// CompletionAPIKeys collects completion credentials from the
// environment: A4F_API_KEY_1 through A4F_API_KEY_4, falling back to a
// comma-separated A4F_API_KEYS list when none of the numbered slots are
// set. An empty result disables AI answering.
func CompletionAPIKeys() []string {
	var keys []string
	for i := 1; i <= 4; i++ {
		if key := strings.TrimSpace(os.Getenv(fmt.Sprintf("A4F_API_KEY_%d", i))); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) > 0 {
		return keys
	}
	for _, key := range strings.Split(os.Getenv("A4F_API_KEYS"), ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Batch answering can run many completion calls per request.
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Completion.BaseURL == "" {
		c.Completion.BaseURL = "https://api.a4f.co/v1"
	}
	if c.Completion.Model == "" {
		c.Completion.Model = "provider-2/gpt-4o-mini"
	}
	if c.Completion.MaxRetries <= 0 {
		c.Completion.MaxRetries = 3
	}
	if c.Completion.TimeoutSec <= 0 {
		c.Completion.TimeoutSec = 30
	}
	if c.Completion.MaxAnswerTokens <= 0 {
		c.Completion.MaxAnswerTokens = 150
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 1000
	}
	if c.Ingest.ChunkOverlap <= 0 {
		c.Ingest.ChunkOverlap = 100
	}
	if c.Ingest.TopK <= 0 {
		c.Ingest.TopK = 3
	}
	if c.Ingest.DownloadTimeoutSec <= 0 {
		c.Ingest.DownloadTimeoutSec = 120
	}
	if c.Ingest.MaxDocumentBytes <= 0 {
		c.Ingest.MaxDocumentBytes = 50 << 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Ingest.ChunkSize <= c.Ingest.ChunkOverlap {
		return fmt.Errorf("ingest.chunk_size (%d) must exceed ingest.chunk_overlap (%d)",
			c.Ingest.ChunkSize, c.Ingest.ChunkOverlap)
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
