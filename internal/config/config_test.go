// internal/config/config_test.go
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadServerConfig(t *testing.T) {
	configPath := writeConfig(t, "server.yaml", `
listen_addr: ":9443"
model_dir: /opt/secureinfer/models
store: redis
redis_addr: "redis.internal:6379"
redis_db: 2
result_retention: 500
max_payload_bytes: 65536
tls_cert: /etc/secureinfer/tls/cert.pem
tls_key: /etc/secureinfer/tls/key.pem
log_level: debug
generator:
  timeout: 45s
  temperature: 0.1
  max_tokens: 200
  endpoints:
    - url: "http://localhost:11434"
      model: "phi3:mini"
    - url: "http://inference.internal/v1"
      model: "llama3"
      format: openai
      api_key_env: "INTERNAL_LLM_KEY"
`)

	t.Setenv("INTERNAL_LLM_KEY", "internal-secret")
	t.Setenv("SECUREINFER_API_KEY", "test-api-key")
	t.Setenv("SECUREINFER_REDIS_PASSWORD", "hunter2")

	cfg, err := LoadServerConfig(configPath)
	if err != nil {
		t.Fatalf("LoadServerConfig failed: %v", err)
	}

	if cfg.ListenAddr != ":9443" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9443")
	}
	if cfg.Store != StoreRedis || cfg.RedisAddr != "redis.internal:6379" || cfg.RedisDB != 2 {
		t.Errorf("redis settings = %q %q %d", cfg.Store, cfg.RedisAddr, cfg.RedisDB)
	}
	if cfg.RedisPassword != "hunter2" {
		t.Errorf("RedisPassword = %q, want from env", cfg.RedisPassword)
	}
	if cfg.APIKey != "test-api-key" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "test-api-key")
	}
	if cfg.MaxPayloadBytes != 65536 {
		t.Errorf("MaxPayloadBytes = %d, want %d", cfg.MaxPayloadBytes, 65536)
	}
	if cfg.Generator.Timeout != 45*time.Second {
		t.Errorf("Generator.Timeout = %v, want 45s", cfg.Generator.Timeout)
	}
	if cfg.Generator.MaxTokens != 200 {
		t.Errorf("Generator.MaxTokens = %d, want 200", cfg.Generator.MaxTokens)
	}
	if len(cfg.Generator.Stop) != 2 {
		t.Errorf("Generator.Stop = %q, want default stops", cfg.Generator.Stop)
	}
	if len(cfg.Generator.Endpoints) != 2 {
		t.Fatalf("Endpoints count = %d, want 2", len(cfg.Generator.Endpoints))
	}
	if cfg.Generator.Endpoints[0].Format != FormatOllama {
		t.Errorf("Endpoint[0].Format = %q, want default ollama", cfg.Generator.Endpoints[0].Format)
	}
	if cfg.Generator.Endpoints[1].APIKey != "internal-secret" {
		t.Errorf("Endpoint[1].APIKey = %q, want %q", cfg.Generator.Endpoints[1].APIKey, "internal-secret")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadServerConfigDefaults(t *testing.T) {
	configPath := writeConfig(t, "server.yaml", "listen_addr: \":8080\"\n")

	cfg, err := LoadServerConfig(configPath)
	if err != nil {
		t.Fatalf("LoadServerConfig failed: %v", err)
	}

	if cfg.ModelDir != "models" {
		t.Errorf("ModelDir = %q, want models", cfg.ModelDir)
	}
	if cfg.Store != StoreSQLite {
		t.Errorf("Store = %q, want sqlite", cfg.Store)
	}
	if cfg.MaxPayloadBytes != 1<<20 {
		t.Errorf("MaxPayloadBytes = %d, want 1MiB", cfg.MaxPayloadBytes)
	}
	if cfg.Generator.Temperature != 0.2 || cfg.Generator.MaxTokens != 250 {
		t.Errorf("generator defaults = %v/%d", cfg.Generator.Temperature, cfg.Generator.MaxTokens)
	}
	if len(cfg.Generator.Endpoints) != 1 || cfg.Generator.Endpoints[0].Model != "phi3:mini" {
		t.Errorf("Endpoints = %+v, want local phi3:mini", cfg.Generator.Endpoints)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadServerConfigEmptyPath(t *testing.T) {
	t.Setenv("SECUREINFER_MODEL_DIR", "/srv/models")

	cfg, err := LoadServerConfig("")
	if err != nil {
		t.Fatalf("LoadServerConfig failed: %v", err)
	}
	if cfg.ModelDir != "/srv/models" {
		t.Errorf("ModelDir = %q, want env override", cfg.ModelDir)
	}
	if cfg.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %q, want :8000", cfg.ListenAddr)
	}
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	if _, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"unknown store", func(c *ServerConfig) { c.Store = "mongo" }},
		{"sqlite without path", func(c *ServerConfig) { c.DBPath = "" }},
		{"redis without addr", func(c *ServerConfig) { c.Store = StoreRedis; c.RedisAddr = "" }},
		{"cert without key", func(c *ServerConfig) { c.TLSCert = "cert.pem" }},
		{"negative payload", func(c *ServerConfig) { c.MaxPayloadBytes = -1 }},
		{"endpoint without url", func(c *ServerConfig) { c.Generator.Endpoints[0].URL = "" }},
		{"endpoint bad format", func(c *ServerConfig) { c.Generator.Endpoints[0].Format = "grpc" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServerConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadReplayConfig(t *testing.T) {
	configPath := writeConfig(t, "replay.yaml", `
server_url: "https://secureinfer.internal:8000"
csv_path: /data/cicids/Friday.csv
interval: 2s
batch_size: 25
state_file: /var/lib/secureinfer/replay_offset
tls_skip_verify: true
`)
	t.Setenv("SECUREINFER_API_KEY", "test-key")

	cfg, err := LoadReplayConfig(configPath)
	if err != nil {
		t.Fatalf("LoadReplayConfig failed: %v", err)
	}

	if cfg.ServerURL != "https://secureinfer.internal:8000" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.Interval.String() != "2s" {
		t.Errorf("Interval = %v, want 2s", cfg.Interval)
	}
	if cfg.BatchSize != 25 {
		t.Errorf("BatchSize = %d, want 25", cfg.BatchSize)
	}
	if !cfg.TLSSkipVerify {
		t.Error("TLSSkipVerify = false, want true")
	}
	if cfg.APIKey != "test-key" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "test-key")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadReplayConfigDefaults(t *testing.T) {
	configPath := writeConfig(t, "replay.yaml", "server_url: \"http://localhost:8000\"\n")

	cfg, err := LoadReplayConfig(configPath)
	if err != nil {
		t.Fatalf("LoadReplayConfig failed: %v", err)
	}
	if cfg.Interval != 5*time.Second {
		t.Errorf("Interval = %v, want 5s", cfg.Interval)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", cfg.BatchSize)
	}

	cfg.ServerURL = ""
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Validate = %v, want ErrInvalidConfig", err)
	}
}
