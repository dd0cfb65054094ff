// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Endpoint formats understood by the generator client
const (
	FormatOllama = "ollama"
	FormatOpenAI = "openai"
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid config")

// GeneratorEndpoint represents one text-generation backend in the fallback chain
type GeneratorEndpoint struct {
	URL       string `yaml:"url"`
	Model     string `yaml:"model"`
	Format    string `yaml:"format"`      // "ollama" (default) or "openai"
	APIKeyEnv string `yaml:"api_key_env"` // env var name for API key
	APIKey    string `yaml:"-"`           // resolved at load time
}

// GeneratorConfig holds decoding parameters shared by all endpoints
type GeneratorConfig struct {
	Timeout     time.Duration       `yaml:"timeout"`
	Temperature float64             `yaml:"temperature"`
	MaxTokens   int                 `yaml:"max_tokens"`
	Stop        []string            `yaml:"stop"`
	Endpoints   []GeneratorEndpoint `yaml:"endpoints"` // fallback chain
}

// ServerConfig for the analysis service
type ServerConfig struct {
	ListenAddr      string          `yaml:"listen_addr"`
	ModelDir        string          `yaml:"model_dir"`
	Store           string          `yaml:"store"`
	DBPath          string          `yaml:"db_path"`
	RedisAddr       string          `yaml:"redis_addr"`
	RedisDB         int             `yaml:"redis_db"`
	RedisPassword   string          `yaml:"-"` // from env only
	ResultRetention int             `yaml:"result_retention"`
	MaxPayloadBytes int64           `yaml:"max_payload_bytes"`
	TLSCert         string          `yaml:"tls_cert"`
	TLSKey          string          `yaml:"tls_key"`
	LogLevel        string          `yaml:"log_level"`
	Generator       GeneratorConfig `yaml:"generator"`
	APIKey          string          `yaml:"-"` // inbound auth, from env
}

// ReplayConfig for the replay agent
type ReplayConfig struct {
	ServerURL     string        `yaml:"server_url"`
	CSVPath       string        `yaml:"csv_path"`
	Interval      time.Duration `yaml:"interval"`
	BatchSize     int           `yaml:"batch_size"`
	StateFile     string        `yaml:"state_file"`
	TLSSkipVerify bool          `yaml:"tls_skip_verify"`
	LogLevel      string        `yaml:"log_level"`
	APIKey        string        `yaml:"-"` // from env only
}

// DefaultServerConfig returns the configuration used when no file is given
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *ServerConfig) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8000"
	}
	if c.ModelDir == "" {
		c.ModelDir = "models"
	}
	if c.Store == "" {
		c.Store = StoreSQLite
	}
	if c.DBPath == "" {
		c.DBPath = "secureinfer.db"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.ResultRetention == 0 {
		c.ResultRetention = 1000
	}
	if c.MaxPayloadBytes == 0 {
		c.MaxPayloadBytes = 1 << 20
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	g := &c.Generator
	if g.Timeout == 0 {
		g.Timeout = 30 * time.Second
	}
	if g.Temperature == 0 {
		g.Temperature = 0.2
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = 250
	}
	if g.Stop == nil {
		g.Stop = []string{"\n\n", "```"}
	}
	if len(g.Endpoints) == 0 {
		g.Endpoints = []GeneratorEndpoint{{URL: "http://localhost:11434", Model: "phi3:mini"}}
	}
	for i := range g.Endpoints {
		if g.Endpoints[i].Format == "" {
			g.Endpoints[i].Format = FormatOllama
		}
	}
}

// Validate reports settings the server cannot start with
func (c *ServerConfig) Validate() error {
	switch c.Store {
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("%w: db_path required for sqlite store", ErrInvalidConfig)
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr required for redis store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("%w: tls_cert and tls_key must be set together", ErrInvalidConfig)
	}
	if c.MaxPayloadBytes < 0 {
		return fmt.Errorf("%w: max_payload_bytes must not be negative", ErrInvalidConfig)
	}
	if c.ResultRetention < 0 {
		return fmt.Errorf("%w: result_retention must not be negative", ErrInvalidConfig)
	}
	for i, ep := range c.Generator.Endpoints {
		if ep.URL == "" {
			return fmt.Errorf("%w: generator endpoint %d has no url", ErrInvalidConfig, i)
		}
		if ep.Format != FormatOllama && ep.Format != FormatOpenAI {
			return fmt.Errorf("%w: generator endpoint %d has unknown format %q", ErrInvalidConfig, i, ep.Format)
		}
	}
	return nil
}

// LoadServerConfig loads server config from YAML file with env overrides.
// An empty path yields the defaults.
func LoadServerConfig(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	// Env overrides
	if key := os.Getenv("SECUREINFER_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if dir := os.Getenv("SECUREINFER_MODEL_DIR"); dir != "" {
		cfg.ModelDir = dir
	}
	if pw := os.Getenv("SECUREINFER_REDIS_PASSWORD"); pw != "" {
		cfg.RedisPassword = pw
	}

	cfg.applyDefaults()

	// Resolve API keys for each generator endpoint from env vars
	for i := range cfg.Generator.Endpoints {
		if cfg.Generator.Endpoints[i].APIKeyEnv != "" {
			cfg.Generator.Endpoints[i].APIKey = os.Getenv(cfg.Generator.Endpoints[i].APIKeyEnv)
		}
	}

	return &cfg, nil
}

// LoadReplayConfig loads replay config from YAML file with env overrides
func LoadReplayConfig(path string) (*ReplayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ReplayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if key := os.Getenv("SECUREINFER_API_KEY"); key != "" {
		cfg.APIKey = key
	}

	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return &cfg, nil
}

// Validate reports settings the replay agent cannot run with
func (c *ReplayConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("%w: server_url required", ErrInvalidConfig)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch_size must not be negative", ErrInvalidConfig)
	}
	if c.Interval < 0 {
		return fmt.Errorf("%w: interval must not be negative", ErrInvalidConfig)
	}
	return nil
}
