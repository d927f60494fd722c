// Package noop provides an authenticator that accepts every request as the
// anonymous identity. It backs auth.type "none".
package noop

import (
	"context"
	"net/http"

	"github.com/rhuss/chatlike/pkg/auth"
)

// Authenticator always votes Yes. When Tier is set, it overrides the
// anonymous identity's service tier.
type Authenticator struct {
	Tier string
}

func (a *Authenticator) Authenticate(_ context.Context, _ *http.Request) auth.AuthResult {
	id := auth.Anonymous()
	if a.Tier != "" {
		id.ServiceTier = a.Tier
	}
	return auth.AuthResult{Decision: auth.Yes, Identity: id}
}
