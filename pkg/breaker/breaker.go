// Package breaker wraps an endpoint with a circuit breaker that fails fast
// while the backend keeps failing. It never retries.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/rhuss/chatlike/pkg/api"
	"github.com/rhuss/chatlike/pkg/endpoint"
	"github.com/rhuss/chatlike/pkg/observability"
)

// ErrOpen is returned while the circuit is open or the half-open probe
// budget is used up.
var ErrOpen = &api.APIError{
	Type:    api.ErrorTypeUnavailable,
	Code:    "circuit_open",
	Message: "backend unavailable: circuit breaker is open",
}

// Config holds circuit breaker settings.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold uint32

	// Timeout is how long the circuit stays open before a probe is allowed.
	Timeout time.Duration

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
}

// DefaultConfig returns the default breaker settings.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Timeout:          60 * time.Second,
		MaxRequests:      1,
	}
}

// Breaker is an endpoint runner guarded by a circuit breaker.
type Breaker struct {
	name string
	next endpoint.Runner
	cb   *gobreaker.TwoStepCircuitBreaker
}

// New creates a breaker in front of next. Zero config fields take their
// defaults.
func New(name string, next endpoint.Runner, cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"endpoint", name,
				"from", from.String(),
				"to", to.String(),
			)
			observability.CircuitState.WithLabelValues(name).Set(stateValue(to))
		},
	}

	observability.CircuitState.WithLabelValues(name).Set(observability.CircuitClosed)

	return &Breaker{
		name: name,
		next: next,
		cb:   gobreaker.NewTwoStepCircuitBreaker(settings),
	}
}

// Wrap returns an adapter that runs next through a new circuit breaker.
func Wrap(name string, next endpoint.Runner, cfg Config) *endpoint.Adapter {
	return endpoint.Custom(New(name, next, cfg).Run)
}

// Run implements endpoint.Runner. The outcome is reported to the breaker when
// the stream ends, so a backend that fails mid-stream counts as a failure.
// Aborted runs count as successes: a cancelled caller says nothing about
// backend health.
func (b *Breaker) Run(ctx context.Context, messages []api.Message, params api.Params) (*endpoint.Stream, error) {
	done, err := b.cb.Allow()
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			slog.Debug("circuit breaker rejected run", "endpoint", b.name, "state", b.cb.State().String())
			return nil, ErrOpen
		}
		return nil, err
	}

	s, err := b.next.Run(ctx, messages, params)
	if err != nil {
		done(healthy(err))
		return nil, err
	}

	return endpoint.Watch(s, nil, func(err error) { done(healthy(err)) }), nil
}

// State returns the current breaker state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// healthy reports whether a terminal run error says the backend is fine.
// Client-side rejections are not backend failures either.
func healthy(err error) bool {
	if err == nil || endpoint.IsAbort(err) {
		return true
	}
	return errors.Is(err, &api.APIError{Type: api.ErrorTypeInvalidRequest})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return observability.CircuitHalfOpen
	case gobreaker.StateOpen:
		return observability.CircuitOpen
	default:
		return observability.CircuitClosed
	}
}
