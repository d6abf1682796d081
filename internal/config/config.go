// Package config handles gateway configuration loading and validation.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// knownWeakSecrets is a blocklist of secrets that must never be used in production.
var knownWeakSecrets = map[string]bool{
	"local-dev-secret-for-testing-only-32chars!": true,
	"changeme": true,
	"secret":   true,
}

// GenerateRandomSecret returns a cryptographically random 64-character hex
// string suitable for use as a JWT secret.
func GenerateRandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Config is the top-level gateway configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Auth      AuthConfig      `json:"auth"`
	Storage   StorageConfig   `json:"storage"`
	Inference InferenceConfig `json:"inference"`
	Gateway   GatewayConfig   `json:"gateway"`
	Logging   LoggingConfig   `json:"logging"`
	RateLimit RateLimitConfig `json:"rate_limit,omitempty"`
}

// ServerConfig defines the gateway's listener settings.
type ServerConfig struct {
	Addr           string   `json:"addr"` // e.g. ":8080"
	TLSCert        string   `json:"tls_cert,omitempty"`
	TLSKey         string   `json:"tls_key,omitempty"`
	AllowedOrigins []string `json:"allowed_origins"`          // CORS/WebSocket origin allow-list; required
	MaxBodyBytes   int64    `json:"max_body_bytes,omitempty"` // max request body size; default 1MB
}

// AuthConfig defines authentication settings.
type AuthConfig struct {
	Provider     string        `json:"provider,omitempty"` // "builtin" (default) or "jwks"
	Issuer       string        `json:"issuer,omitempty"`   // identity authority base URL, required for jwks
	JWTSecret    string        `json:"jwt_secret,omitempty"`
	JWTExpiry    Duration      `json:"jwt_expiry,omitempty"`
	InitialAdmin *InitialAdmin `json:"initial_admin,omitempty"`
}

// InitialAdmin is used to bootstrap the first admin user (builtin provider).
type InitialAdmin struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Driver string `json:"driver"` // "sqlite" (default) or "postgres"
	DSN    string `json:"dsn"`    // e.g. "codeuniverse.db" or ":memory:"
}

// InferenceConfig defines the upstream model-inference service.
type InferenceConfig struct {
	BaseURL string   `json:"base_url"`          // required
	Timeout Duration `json:"timeout,omitempty"` // 0 = no client timeout
}

// GatewayConfig defines WebSocket liveness and sizing.
type GatewayConfig struct {
	PingInterval    Duration `json:"ping_interval,omitempty"`     // transport probe interval; default 25s
	PongWait        Duration `json:"pong_wait,omitempty"`         // idle timeout before drop; default 120s
	MaxMessageBytes int64    `json:"max_message_bytes,omitempty"` // max inbound message; default 64KB
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"` // "json" or "text"
}

// RateLimitConfig throttles the builtin login endpoint.
type RateLimitConfig struct {
	LoginPerSecond float64 `json:"login_per_second,omitempty"` // default 5
	LoginBurst     int     `json:"login_burst,omitempty"`      // default 10
}

// Duration is a JSON-friendly time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		dur, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = dur
	case float64:
		d.Duration = time.Duration(val) * time.Second
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Load reads a config file, applies environment overrides, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnvOverrides lets deploy-time environment variables win over the file.
// SOCKET_CORS_ORIGINS is a comma-separated origin list; MODEL_SERVICE_URL is
// the inference service base URL.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SOCKET_CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		c.Server.AllowedOrigins = c.Server.AllowedOrigins[:0]
		for _, o := range origins {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, o)
			}
		}
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.Inference.BaseURL = v
	}
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("server.allowed_origins is required (or set SOCKET_CORS_ORIGINS)")
	}
	if c.Inference.BaseURL == "" {
		return fmt.Errorf("inference.base_url is required (or set MODEL_SERVICE_URL)")
	}
	// JWTSecret is only required for the builtin auth provider.
	if (c.Auth.Provider == "" || c.Auth.Provider == "builtin") && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if knownWeakSecrets[c.Auth.JWTSecret] {
		return fmt.Errorf("auth.jwt_secret is a well-known weak secret; generate a new one")
	}
	if c.Auth.Provider == "jwks" && c.Auth.Issuer == "" {
		return fmt.Errorf("auth.issuer is required when provider is jwks")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Auth.JWTExpiry.Duration == 0 {
		c.Auth.JWTExpiry.Duration = 24 * time.Hour
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.DSN == "" {
		c.Storage.DSN = "codeuniverse.db"
	}
	if c.Gateway.PingInterval.Duration == 0 {
		c.Gateway.PingInterval.Duration = 25 * time.Second
	}
	if c.Gateway.PongWait.Duration == 0 {
		c.Gateway.PongWait.Duration = 120 * time.Second
	}
	if c.Gateway.MaxMessageBytes == 0 {
		c.Gateway.MaxMessageBytes = 64 * 1024 // 64KB
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.RateLimit.LoginPerSecond == 0 {
		c.RateLimit.LoginPerSecond = 5
	}
	if c.RateLimit.LoginBurst == 0 {
		c.RateLimit.LoginBurst = 10
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1024 * 1024 // 1MB
	}
}
