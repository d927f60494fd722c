// Package auth authenticates and rate limits callers of the chatlike proxy.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default voter decides
// when all authenticators abstain.
//
// Auth is implemented as HTTP middleware in front of the completion routes.
// The identity it establishes is stored in the request context, where the
// rate limiter and request logging pick it up.
package auth
