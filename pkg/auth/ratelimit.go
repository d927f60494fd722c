package auth

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter checks whether a request should be allowed based on
// the identity's service tier.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// TierConfig holds token bucket settings for a service tier. A rate of zero
// means unlimited.
type TierConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// TokenLimiter keeps one token bucket per subject and tier in memory.
type TokenLimiter struct {
	tiers    map[string]TierConfig
	fallback TierConfig

	mu       sync.Mutex
	limiters map[string]*subjectLimiter
}

type subjectLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTokenLimiter creates a rate limiter. Identities whose tier has no entry
// in tiers use fallback.
func NewTokenLimiter(fallback TierConfig, tiers map[string]TierConfig) *TokenLimiter {
	return &TokenLimiter{
		tiers:    tiers,
		fallback: fallback,
		limiters: make(map[string]*subjectLimiter),
	}
}

// Allow takes one token from the caller's bucket. It returns
// ErrTooManyRequests when the bucket is empty.
func (l *TokenLimiter) Allow(_ context.Context, identity *Identity) error {
	tier := identity.Tier()
	cfg, ok := l.tiers[tier]
	if !ok {
		cfg = l.fallback
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}

	if !l.limiter(identity.Subject+":"+tier, cfg).Allow() {
		return ErrTooManyRequests
	}
	return nil
}

func (l *TokenLimiter) limiter(key string, cfg TierConfig) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	sl, ok := l.limiters[key]
	if !ok {
		burst := cfg.Burst
		if burst <= 0 {
			burst = int(math.Max(1, math.Ceil(cfg.RequestsPerSecond)))
		}
		sl = &subjectLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)}
		l.limiters[key] = sl
	}
	sl.lastSeen = time.Now()
	return sl.limiter
}

// Sweep drops buckets not used within idle and returns how many were removed.
func (l *TokenLimiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, sl := range l.limiters {
		if time.Since(sl.lastSeen) > idle {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// RunCleanup sweeps idle buckets every interval until ctx is done.
func (l *TokenLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(interval)
		}
	}
}

// Len returns the number of tracked buckets.
func (l *TokenLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
