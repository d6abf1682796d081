package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	configJSON := `{
		"server": {
			"addr": ":8080",
			"allowed_origins": ["http://localhost:3000"]
		},
		"auth": {
			"jwt_secret": "my-super-secret-jwt-key-at-least-32",
			"jwt_expiry": "2h",
			"initial_admin": {
				"username": "admin",
				"password": "admin123"
			}
		},
		"storage": {
			"driver": "sqlite",
			"dsn": "test.db"
		},
		"inference": {
			"base_url": "http://model:8000",
			"timeout": "45s"
		},
		"gateway": {
			"ping_interval": "10s",
			"pong_wait": "30s",
			"max_message_bytes": 32768
		},
		"logging": {
			"level": "debug",
			"format": "text"
		}
	}`

	path := writeTempConfig(t, configJSON)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr: got %q, want %q", cfg.Server.Addr, ":8080")
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("Server.AllowedOrigins: got %v, want [http://localhost:3000]", cfg.Server.AllowedOrigins)
	}
	if cfg.Auth.JWTExpiry.Duration != 2*time.Hour {
		t.Errorf("Auth.JWTExpiry: got %v, want 2h", cfg.Auth.JWTExpiry.Duration)
	}
	if cfg.Auth.InitialAdmin == nil || cfg.Auth.InitialAdmin.Username != "admin" {
		t.Errorf("Auth.InitialAdmin: got %+v", cfg.Auth.InitialAdmin)
	}
	if cfg.Inference.BaseURL != "http://model:8000" {
		t.Errorf("Inference.BaseURL: got %q", cfg.Inference.BaseURL)
	}
	if cfg.Inference.Timeout.Duration != 45*time.Second {
		t.Errorf("Inference.Timeout: got %v, want 45s", cfg.Inference.Timeout.Duration)
	}
	if cfg.Gateway.PingInterval.Duration != 10*time.Second {
		t.Errorf("Gateway.PingInterval: got %v, want 10s", cfg.Gateway.PingInterval.Duration)
	}
	if cfg.Gateway.PongWait.Duration != 30*time.Second {
		t.Errorf("Gateway.PongWait: got %v, want 30s", cfg.Gateway.PongWait.Duration)
	}
	if cfg.Gateway.MaxMessageBytes != 32768 {
		t.Errorf("Gateway.MaxMessageBytes: got %d, want 32768", cfg.Gateway.MaxMessageBytes)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	configJSON := `{
		"server": {"addr": ":8080", "allowed_origins": ["https://app.example.com"]},
		"auth": {"jwt_secret": "my-super-secret-jwt-key-at-least-32"},
		"inference": {"base_url": "http://model:8000"}
	}`

	path := writeTempConfig(t, configJSON)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver default: got %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.DSN != "codeuniverse.db" {
		t.Errorf("Storage.DSN default: got %q", cfg.Storage.DSN)
	}
	if cfg.Auth.JWTExpiry.Duration != 24*time.Hour {
		t.Errorf("Auth.JWTExpiry default: got %v, want 24h", cfg.Auth.JWTExpiry.Duration)
	}
	if cfg.Gateway.PingInterval.Duration != 25*time.Second {
		t.Errorf("Gateway.PingInterval default: got %v, want 25s", cfg.Gateway.PingInterval.Duration)
	}
	if cfg.Gateway.PongWait.Duration != 120*time.Second {
		t.Errorf("Gateway.PongWait default: got %v, want 120s", cfg.Gateway.PongWait.Duration)
	}
	if cfg.Gateway.MaxMessageBytes != 64*1024 {
		t.Errorf("Gateway.MaxMessageBytes default: got %d, want 65536", cfg.Gateway.MaxMessageBytes)
	}
	if cfg.Inference.Timeout.Duration != 0 {
		t.Errorf("Inference.Timeout default: got %v, want 0", cfg.Inference.Timeout.Duration)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging defaults: got %+v", cfg.Logging)
	}
	if cfg.RateLimit.LoginPerSecond != 5 || cfg.RateLimit.LoginBurst != 10 {
		t.Errorf("RateLimit defaults: got %+v", cfg.RateLimit)
	}
	if cfg.Server.MaxBodyBytes != 1024*1024 {
		t.Errorf("Server.MaxBodyBytes default: got %d", cfg.Server.MaxBodyBytes)
	}
}

func TestLoadConfigFatalValidation(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{
			name: "missing addr",
			json: `{"server": {"allowed_origins": ["*"]}, "auth": {"jwt_secret": "my-super-secret-jwt-key-at-least-32"}, "inference": {"base_url": "http://m"}}`,
		},
		{
			name: "missing allowed origins",
			json: `{"server": {"addr": ":8080"}, "auth": {"jwt_secret": "my-super-secret-jwt-key-at-least-32"}, "inference": {"base_url": "http://m"}}`,
		},
		{
			name: "missing inference base url",
			json: `{"server": {"addr": ":8080", "allowed_origins": ["*"]}, "auth": {"jwt_secret": "my-super-secret-jwt-key-at-least-32"}}`,
		},
		{
			name: "missing jwt secret for builtin",
			json: `{"server": {"addr": ":8080", "allowed_origins": ["*"]}, "inference": {"base_url": "http://m"}}`,
		},
		{
			name: "short jwt secret",
			json: `{"server": {"addr": ":8080", "allowed_origins": ["*"]}, "auth": {"jwt_secret": "short"}, "inference": {"base_url": "http://m"}}`,
		},
		{
			name: "jwks without issuer",
			json: `{"server": {"addr": ":8080", "allowed_origins": ["*"]}, "auth": {"provider": "jwks"}, "inference": {"base_url": "http://m"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempConfig(t, tt.json)
			if _, err := Load(path); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SOCKET_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("MODEL_SERVICE_URL", "http://inference.internal:9000")

	configJSON := `{
		"server": {"addr": ":8080"},
		"auth": {"jwt_secret": "my-super-secret-jwt-key-at-least-32"}
	}`

	path := writeTempConfig(t, configJSON)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Fatalf("AllowedOrigins: got %v, want %v", cfg.Server.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.Server.AllowedOrigins[i] != want[i] {
			t.Errorf("AllowedOrigins[%d]: got %q, want %q", i, cfg.Server.AllowedOrigins[i], want[i])
		}
	}
	if cfg.Inference.BaseURL != "http://inference.internal:9000" {
		t.Errorf("Inference.BaseURL: got %q", cfg.Inference.BaseURL)
	}
}

func TestGenerateRandomSecret(t *testing.T) {
	a, err := GenerateRandomSecret()
	if err != nil {
		t.Fatalf("GenerateRandomSecret: %v", err)
	}
	b, err := GenerateRandomSecret()
	if err != nil {
		t.Fatalf("GenerateRandomSecret: %v", err)
	}
	if len(a) != 64 {
		t.Errorf("secret length: got %d, want 64", len(a))
	}
	if a == b {
		t.Error("two generated secrets are identical")
	}
}
