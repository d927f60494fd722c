package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, CHATLIKE_CONFIG env, ./config.yaml, /etc/chatlike/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. CHATLIKE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/chatlike/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("CHATLIKE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/chatlike/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps CHATLIKE_* environment variables to config fields.
// Malformed numeric or duration values are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []string

	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
				return
			}
			*dst = b
		}
	}

	integer("CHATLIKE_PORT", &cfg.Server.Port)

	str("CHATLIKE_ENDPOINT_TYPE", &cfg.Endpoint.Type)
	str("CHATLIKE_ENDPOINT_NAME", &cfg.Endpoint.Name)
	str("CHATLIKE_ENDPOINT_URL", &cfg.Endpoint.URL)
	str("CHATLIKE_ENDPOINT_API_KEY", &cfg.Endpoint.APIKey)
	str("CHATLIKE_ENDPOINT_MODE", &cfg.Endpoint.Mode)
	duration("CHATLIKE_ENDPOINT_TIMEOUT", &cfg.Endpoint.Timeout)

	// CHATLIKE_MODEL sets the model forwarded with every request.
	if v := os.Getenv("CHATLIKE_MODEL"); v != "" {
		if cfg.Endpoint.DefaultParams == nil {
			cfg.Endpoint.DefaultParams = make(map[string]any)
		}
		cfg.Endpoint.DefaultParams["model"] = v
	}

	str("CHATLIKE_AUTH_TYPE", &cfg.Auth.Type)
	str("CHATLIKE_JWT_SECRET", &cfg.Auth.JWT.Secret)
	str("CHATLIKE_JWT_ISSUER", &cfg.Auth.JWT.Issuer)
	str("CHATLIKE_JWT_AUDIENCE", &cfg.Auth.JWT.Audience)

	// CHATLIKE_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("CHATLIKE_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("CHATLIKE_API_KEYS: %v", err))
		} else if len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}

	if v := os.Getenv("CHATLIKE_RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("CHATLIKE_RATE_LIMIT_RPS: %v", err))
		} else {
			cfg.RateLimit.RequestsPerSecond = rps
		}
	}
	integer("CHATLIKE_RATE_LIMIT_BURST", &cfg.RateLimit.Burst)

	boolean("CHATLIKE_CIRCUIT_BREAKER_ENABLED", &cfg.CircuitBreaker.Enabled)

	str("CHATLIKE_LOG_FORMAT", &cfg.Logging.Format)

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// endpoint.api_key_file -> endpoint.api_key
	if cfg.Endpoint.APIKeyFile != "" && cfg.Endpoint.APIKey == "" {
		val, err := readSecretFile(cfg.Endpoint.APIKeyFile)
		if err != nil {
			return fmt.Errorf("endpoint.api_key_file: %w", err)
		}
		cfg.Endpoint.APIKey = val
	}

	// auth.jwt.secret_file -> auth.jwt.secret
	if cfg.Auth.JWT.SecretFile != "" && cfg.Auth.JWT.Secret == "" {
		val, err := readSecretFile(cfg.Auth.JWT.SecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt.secret_file: %w", err)
		}
		cfg.Auth.JWT.Secret = val
	}

	// auth.api_keys[*].key_file -> auth.api_keys[*].key
	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
