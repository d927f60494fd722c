package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/rhuss/chatlike/pkg/api"
	"github.com/rhuss/chatlike/pkg/debug"
	"github.com/rhuss/chatlike/pkg/endpoint"
	"github.com/rhuss/chatlike/pkg/observability"
	"github.com/rhuss/chatlike/pkg/transport"
)

// Adapter serves an endpoint runner to remote callers over HTTP.
// It routes requests, validates their shape, and serializes the resulting
// stream as a JSON response or as server-sent events.
type Adapter struct {
	runner   endpoint.Runner
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
	Validation  api.ValidationConfig

	// DefaultParams are forwarded with every run. Parameters sent by the
	// caller take precedence.
	DefaultParams api.Params

	// MetricsPath mounts the Prometheus handler when non-empty.
	MetricsPath string
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
		Validation:  api.DefaultValidationConfig(),
	}
}

// NewAdapter creates an HTTP adapter for the given runner.
// Middleware is applied to the runner in the given order.
func NewAdapter(runner endpoint.Runner, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	if len(middlewares) > 0 {
		runner = transport.Chain(middlewares...)(runner)
	}

	a := &Adapter{
		runner:   runner,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("POST /v1/completions", a.handleCreateCompletion)
	a.mux.HandleFunc("DELETE /v1/completions/{id}", a.handleCancelCompletion)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)
	if cfg.MetricsPath != "" {
		a.mux.Handle("GET "+cfg.MetricsPath, observability.Handler())
	}

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// InFlight returns the number of runs currently being served.
func (a *Adapter) InFlight() int {
	return a.inflight.Len()
}

// httpRequestIDMiddleware assigns every request an ID before routing. A
// client-supplied X-Request-ID is kept, which lets the client cancel the
// run with DELETE /v1/completions/{id} before any output arrives. The ID is
// echoed in the X-Request-ID response header.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = api.NewCompletionID()
		}
		r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// handleCreateCompletion handles POST /v1/completions.
func (a *Adapter) handleCreateCompletion(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	if apiErr := api.ValidateCompletionRequest(&req, a.config.Validation); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	id := transport.RequestIDFromContext(r.Context())
	ctx, release, ok := a.inflight.Track(r.Context(), id)
	defer release()
	if !ok {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("X-Request-ID", "a run with this request ID is already in flight"),
			http.StatusConflict,
		)
		return
	}

	params := mergeParams(a.config.DefaultParams, req.Params)
	debug.Log("transport", "completion request",
		"id", id,
		"messages", len(req.Messages),
		"stream", req.Stream,
	)

	s, err := a.runner.Run(ctx, req.Messages, params)
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}

	if req.Stream {
		a.streamCompletion(w, s, id)
		return
	}

	text, err := endpoint.ReadAll(s)
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.CompletionResponse{ID: id, Text: text})
}

// streamCompletion forwards every chunk as an SSE event. Leaving the loop
// early closes the stream, which aborts the backend call.
func (a *Adapter) streamCompletion(w http.ResponseWriter, s *endpoint.Stream, id string) {
	sw := newSSEWriter(w, id)

	for chunk, err := range s.Chunks() {
		if err != nil {
			a.writeRunError(w, sw, err)
			return
		}
		if err := sw.WriteChunk(chunk); err != nil {
			debug.Log("transport", "client write failed", "id", id, "error", err)
			return
		}
	}

	if err := sw.WriteDone(); err != nil {
		debug.Log("transport", "client write failed", "id", id, "error", err)
	}
}

// handleCancelCompletion handles DELETE /v1/completions/{id}.
func (a *Adapter) handleCancelCompletion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !a.inflight.Cancel(id) {
		transport.WriteAPIError(w, api.NewNotFoundError("no in-flight completion with id "+id))
		return
	}
	debug.Log("transport", "completion cancelled", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles GET /healthz.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"in_flight": a.inflight.Len(),
	})
}

// writeRunError reports a run failure. If streaming has already started, it
// sends an error event. Otherwise it writes a standard JSON error response.
func (a *Adapter) writeRunError(w http.ResponseWriter, sw *sseWriter, err error) {
	apiErr := transport.AsAPIError(err)

	if sw.hasStartedStreaming() {
		sw.WriteError(apiErr)
		return
	}

	transport.WriteAPIError(w, apiErr)
}

// mergeParams layers the caller's params over the defaults. The result is
// nil when both are empty so the backend keeps its own defaults.
func mergeParams(defaults, params api.Params) api.Params {
	if len(defaults) == 0 {
		return params
	}
	out := defaults.Clone()
	for k, v := range params {
		out[k] = v
	}
	return out
}
