// Command chatlike serves a chat-like endpoint adapter over HTTP.
//
// Configuration is read from a YAML file and CHATLIKE_* environment
// variables (see pkg/config). The config file path can be given with
// -config or CHATLIKE_CONFIG. Variables from a .env file (or -env-file) are
// loaded first and never override the real environment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rhuss/chatlike/pkg/api"
	"github.com/rhuss/chatlike/pkg/auth"
	"github.com/rhuss/chatlike/pkg/auth/apikey"
	"github.com/rhuss/chatlike/pkg/auth/jwt"
	"github.com/rhuss/chatlike/pkg/auth/noop"
	"github.com/rhuss/chatlike/pkg/breaker"
	"github.com/rhuss/chatlike/pkg/config"
	"github.com/rhuss/chatlike/pkg/debug"
	"github.com/rhuss/chatlike/pkg/endpoint"
	"github.com/rhuss/chatlike/pkg/observability"
	transporthttp "github.com/rhuss/chatlike/pkg/transport/http"
)

// limiterSweepInterval is how often idle rate limit buckets are dropped.
const limiterSweepInterval = 5 * time.Minute

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	envFile := flag.String("env-file", "", "path to a dotenv file (default: .env if present)")
	flag.Parse()

	if err := loadEnvFile(*envFile); err != nil {
		slog.Error("loading env file", "error", err)
		os.Exit(1)
	}

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// loadEnvFile loads dotenv variables. Without an explicit path a missing
// ./.env is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = ".env"
	}
	return godotenv.Load(path)
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)

	runner, err := buildRunner(cfg)
	if err != nil {
		return err
	}

	chain, err := buildAuthChain(cfg.Auth)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var limiter auth.RateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		tl := auth.NewTokenLimiter(auth.TierConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}, nil)
		go tl.RunCleanup(ctx, limiterSweepInterval)
		limiter = tl
	}

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(":" + strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithValidation(api.ValidationConfig{
			MaxMessages:    cfg.Server.MaxMessages,
			MaxContentSize: int(cfg.Server.MaxBodySize),
		}),
		transporthttp.WithDefaultParams(api.Params(cfg.Endpoint.DefaultParams)),
		transporthttp.WithHTTPMiddleware(auth.Middleware(chain, limiter, bypassEndpoints(cfg))),
	}
	if cfg.Observability.Metrics.Enabled {
		opts = append(opts, transporthttp.WithMetrics(cfg.Observability.Metrics.Path))
	}

	slog.Info("chatlike configured",
		"endpoint", cfg.Endpoint.Name,
		"type", cfg.Endpoint.Type,
		"mode", cfg.Endpoint.Mode,
		"auth", cfg.Auth.Type,
		"circuit_breaker", cfg.CircuitBreaker.Enabled,
	)

	return transporthttp.NewServer(runner, opts...).Run(ctx)
}

// buildRunner creates the endpoint adapter described by the config and
// wraps it with the circuit breaker and instrumentation.
func buildRunner(cfg *config.Config) (endpoint.Runner, error) {
	var base *endpoint.Adapter

	switch cfg.Endpoint.Type {
	case "openai":
		mode, err := endpoint.ParseMode(cfg.Endpoint.Mode)
		if err != nil {
			return nil, err
		}
		opts := []endpoint.Option{
			endpoint.WithMode(mode),
			endpoint.WithTimeout(cfg.Endpoint.Timeout),
		}
		if cfg.Endpoint.APIKey != "" {
			opts = append(opts, endpoint.WithAPIKey(cfg.Endpoint.APIKey))
		}
		for k, v := range cfg.Endpoint.Headers {
			opts = append(opts, endpoint.WithHeader(k, v))
		}
		base = endpoint.StandardOpenAI(cfg.Endpoint.URL, opts...)
	case "echo":
		base = endpoint.FromComplete(echo)
	default:
		return nil, fmt.Errorf("unknown endpoint type %q", cfg.Endpoint.Type)
	}

	var runner endpoint.Runner = base
	if cfg.CircuitBreaker.Enabled {
		runner = breaker.Wrap(cfg.Endpoint.Name, runner, breaker.Config{
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			Timeout:          cfg.CircuitBreaker.Timeout,
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
		})
	}
	return observability.Instrument(cfg.Endpoint.Name, runner), nil
}

// echo answers with the content of the last message.
func echo(ctx context.Context, messages []api.Message, _ api.Params) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", api.NewAbortedError(err)
	}
	if len(messages) == 0 {
		return "", nil
	}
	return messages[len(messages)-1].Content, nil
}

// buildAuthChain creates the authenticator chain for the configured auth
// type. The jwt type also accepts configured API keys.
func buildAuthChain(cfg config.AuthConfig) (*auth.AuthChain, error) {
	switch cfg.Type {
	case "", "none":
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{&noop.Authenticator{}},
			DefaultDecision: auth.Yes,
		}, nil
	case "apikey":
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{apikey.New(apiKeyEntries(cfg.APIKeys))},
			DefaultDecision: auth.No,
		}, nil
	case "jwt":
		ja, err := jwt.New(jwt.Config{
			Secret:      []byte(cfg.JWT.Secret),
			Issuer:      cfg.JWT.Issuer,
			Audience:    cfg.JWT.Audience,
			UserClaim:   cfg.JWT.UserClaim,
			TenantClaim: cfg.JWT.TenantClaim,
			TierClaim:   cfg.JWT.TierClaim,
		})
		if err != nil {
			return nil, err
		}
		authenticators := []auth.Authenticator{ja}
		if len(cfg.APIKeys) > 0 {
			authenticators = append(authenticators, apikey.New(apiKeyEntries(cfg.APIKeys)))
		}
		return &auth.AuthChain{
			Authenticators:  authenticators,
			DefaultDecision: auth.No,
		}, nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
}

func apiKeyEntries(keys []config.APIKeyConfig) []apikey.RawKeyEntry {
	entries := make([]apikey.RawKeyEntry, 0, len(keys))
	for _, k := range keys {
		id := auth.Identity{
			Subject:     k.Subject,
			ServiceTier: k.ServiceTier,
		}
		if k.TenantID != "" {
			id.Metadata = map[string]string{"tenant_id": k.TenantID}
		}
		entries = append(entries, apikey.RawKeyEntry{Key: k.Key, Identity: id})
	}
	return entries
}

// bypassEndpoints lists paths served without authentication.
func bypassEndpoints(cfg *config.Config) []string {
	paths := append([]string{}, auth.DefaultBypassEndpoints...)
	if cfg.Observability.Metrics.Enabled {
		paths = append(paths, cfg.Observability.Metrics.Path)
	}
	return paths
}
