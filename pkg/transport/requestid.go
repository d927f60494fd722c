package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/rhuss/chatlike/pkg/api"
	"github.com/rhuss/chatlike/pkg/endpoint"
)

// RequestID returns middleware that makes sure every run carries a request
// ID. An ID already present in the context (set by the HTTP proxy from the
// X-Request-ID header) is kept; otherwise a new UUID is generated.
func RequestID() Middleware {
	return func(next endpoint.Runner) endpoint.Runner {
		return endpoint.RunFunc(func(ctx context.Context, messages []api.Message, params api.Params) (*endpoint.Stream, error) {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.Run(ctx, messages, params)
		})
	}
}

// NewRequestID returns a fresh request ID.
func NewRequestID() string {
	return uuid.NewString()
}
