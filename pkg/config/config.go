// Package config provides unified configuration for chatlike.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (CHATLIKE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for chatlike.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Endpoint       EndpointConfig       `yaml:"endpoint"`
	Auth           AuthConfig           `yaml:"auth"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Observability  ObservabilityConfig  `yaml:"observability"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
	MaxBodySize  int64         `yaml:"max_body_size"` // default: 10MB
	MaxMessages  int           `yaml:"max_messages"`  // default: 1000
}

// EndpointConfig describes the chat backend the server adapts.
type EndpointConfig struct {
	Type          string            `yaml:"type"`           // "openai" or "echo", default: "openai"
	Name          string            `yaml:"name"`           // label for metrics and logs, default: "default"
	URL           string            `yaml:"url"`            // required for type=openai
	APIKey        string            `yaml:"api_key"`        // optional
	APIKeyFile    string            `yaml:"api_key_file"`   // _file variant for api_key
	Mode          string            `yaml:"mode"`           // "buffered", "incremental", or "sse", default: "buffered"
	Timeout       time.Duration     `yaml:"timeout"`        // 0 leaves timing to the caller
	Headers       map[string]string `yaml:"headers"`        // extra request headers
	DefaultParams map[string]any    `yaml:"default_params"` // merged under request params
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey", or "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key" json:"key"`
	KeyFile     string `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject     string `yaml:"subject" json:"subject"`
	TenantID    string `yaml:"tenant_id" json:"tenant_id"`
	ServiceTier string `yaml:"service_tier" json:"service_tier"`
}

// JWTConfig holds settings for HMAC-signed bearer tokens.
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	SecretFile  string `yaml:"secret_file"` // _file variant for secret
	Issuer      string `yaml:"issuer"`
	Audience    string `yaml:"audience"`
	UserClaim   string `yaml:"user_claim"`   // default: "sub"
	TenantClaim string `yaml:"tenant_claim"` // optional
	TierClaim   string `yaml:"tier_claim"`   // optional
}

// RateLimitConfig holds per-subject token bucket settings. A zero rate
// disables rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"` // default: 10
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`           // default: false
	FailureThreshold uint32        `yaml:"failure_threshold"` // default: 5
	Timeout          time.Duration `yaml:"timeout"`           // default: 60s
	MaxRequests      uint32        `yaml:"max_requests"`      // default: 1
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "TRACE", "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			MaxBodySize:  10 << 20,
			MaxMessages:  1000,
		},
		Endpoint: EndpointConfig{
			Type: "openai",
			Name: "default",
			Mode: "buffered",
		},
		Auth: AuthConfig{
			Type: "none",
			JWT: JWTConfig{
				UserClaim: "sub",
			},
		},
		RateLimit: RateLimitConfig{
			Burst: 10,
		},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 5,
			Timeout:          60 * time.Second,
			MaxRequests:      1,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
