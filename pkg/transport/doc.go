// Package transport provides the middleware chain that wraps endpoint
// runners, and the helpers the HTTP proxy uses to report errors and cancel
// in-flight runs.
//
// # Middleware
//
// A Middleware decorates an endpoint.Runner. Built-in middleware provides
// panic recovery, request ID assignment (X-Request-ID, UUIDs via
// github.com/google/uuid), and structured logging via log/slog. Because runs
// return lazy streams, the logging middleware reports when the stream ends,
// not when Run returns.
//
// # Cancellation
//
// InFlightRegistry maps request IDs to cancel functions. The HTTP proxy
// registers every run and exposes DELETE /v1/completions/{id}, which is the
// remote form of the cancellation signal a local caller passes as a context.
//
// The HTTP proxy itself lives in the http subpackage.
package transport
