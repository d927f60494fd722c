package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rhuss/chatlike/pkg/endpoint"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	switch c.Endpoint.Type {
	case "openai":
		if c.Endpoint.URL == "" {
			errs = append(errs, fmt.Errorf("endpoint.url is required when endpoint.type is \"openai\""))
		} else if u, err := url.Parse(c.Endpoint.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("endpoint.url must be an absolute URL, got %q", c.Endpoint.URL))
		}
	case "echo":
		// valid, no backend needed
	default:
		errs = append(errs, fmt.Errorf("endpoint.type must be \"openai\" or \"echo\", got %q", c.Endpoint.Type))
	}

	if _, err := endpoint.ParseMode(c.Endpoint.Mode); err != nil {
		errs = append(errs, fmt.Errorf("endpoint.mode: %w", err))
	}
	if c.Endpoint.Timeout < 0 {
		errs = append(errs, fmt.Errorf("endpoint.timeout must be >= 0, got %s", c.Endpoint.Timeout))
	}
	if _, ok := c.Endpoint.DefaultParams["messages"]; ok {
		errs = append(errs, fmt.Errorf("endpoint.default_params must not set \"messages\""))
	}

	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, fmt.Errorf("auth.api_keys must not be empty when auth.type is \"apikey\""))
		}
	case "jwt":
		if c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" {
			errs = append(errs, fmt.Errorf("auth.jwt.secret or auth.jwt.secret_file is required when auth.type is \"jwt\""))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.requests_per_second must be >= 0, got %g", c.RateLimit.RequestsPerSecond))
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.burst must be > 0 when rate limiting is enabled, got %d", c.RateLimit.Burst))
	}

	if c.CircuitBreaker.Enabled && c.CircuitBreaker.FailureThreshold == 0 {
		errs = append(errs, fmt.Errorf("circuit_breaker.failure_threshold must be > 0"))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "", "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be TRACE, DEBUG, INFO, WARN, or ERROR, got %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
