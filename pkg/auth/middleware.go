package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rhuss/chatlike/pkg/api"
	"github.com/rhuss/chatlike/pkg/debug"
	"github.com/rhuss/chatlike/pkg/observability"
)

// Middleware creates HTTP middleware from an AuthChain and optional RateLimiter.
// It checks the bypass list, runs authentication, stores the identity in the
// request context, and optionally enforces rate limits.
func Middleware(chain *AuthChain, limiter RateLimiter, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)

			if result.Decision != Yes || result.Identity == nil {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"decision", result.Decision.String(),
					"error", result.Err,
				)
				writeError(w, http.StatusUnauthorized, &api.APIError{
					Type:    api.ErrorTypeInvalidRequest,
					Code:    "unauthenticated",
					Message: ErrUnauthenticated.Error(),
				})
				return
			}

			if result.Identity.Subject == "" {
				slog.Error("authenticator returned identity with empty subject")
				writeError(w, http.StatusInternalServerError, api.NewServerError("internal authentication error"))
				return
			}

			debug.Log("auth", "authenticated",
				"subject", result.Identity.Subject,
				"tier", result.Identity.Tier(),
				"path", r.URL.Path,
			)

			if limiter != nil {
				if err := limiter.Allow(r.Context(), result.Identity); err != nil {
					slog.Warn("rate limit exceeded",
						"subject", result.Identity.Subject,
						"tier", result.Identity.Tier(),
					)
					observability.RateLimitRejectedTotal.WithLabelValues(result.Identity.Tier()).Inc()
					w.Header().Set("Retry-After", "1")
					writeError(w, http.StatusTooManyRequests, api.NewTooManyRequestsError(ErrTooManyRequests.Error()))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), result.Identity)))
		})
	}
}

// DefaultBypassEndpoints lists endpoints that skip authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics"}

func writeError(w http.ResponseWriter, status int, apiErr *api.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}
