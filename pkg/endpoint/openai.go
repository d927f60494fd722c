package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/chatlike/pkg/api"
	"github.com/rhuss/chatlike/pkg/debug"
)

// Mode selects how the HTTP-backed adapter turns the response body into
// stream chunks.
type Mode int

const (
	// ModeBuffered reads the whole body and emits it as exactly one chunk.
	ModeBuffered Mode = iota

	// ModeIncremental emits body text as it arrives, decoded as UTF-8
	// without splitting multi-byte characters across chunks.
	ModeIncremental

	// ModeSSE parses the body as Chat Completions server-sent events and
	// emits each content delta as a chunk.
	ModeSSE
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeBuffered:
		return "buffered"
	case ModeIncremental:
		return "incremental"
	case ModeSSE:
		return "sse"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a configuration string into a Mode. The empty string
// selects ModeBuffered.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "buffered":
		return ModeBuffered, nil
	case "incremental":
		return ModeIncremental, nil
	case "sse":
		return ModeSSE, nil
	default:
		return ModeBuffered, fmt.Errorf("unknown endpoint mode %q", s)
	}
}

type httpOptions struct {
	client  *http.Client
	apiKey  string
	headers http.Header
	mode    Mode
	timeout time.Duration
}

// Option configures the adapter returned by StandardOpenAI.
type Option func(*httpOptions)

// WithHTTPClient sets the HTTP client. Defaults to http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(o *httpOptions) { o.client = c }
}

// WithAPIKey sends the key as a Bearer token.
func WithAPIKey(key string) Option {
	return func(o *httpOptions) { o.apiKey = key }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(o *httpOptions) { o.headers.Add(key, value) }
}

// WithMode selects the body decoding mode. Defaults to ModeBuffered.
func WithMode(m Mode) Option {
	return func(o *httpOptions) { o.mode = m }
}

// WithTimeout bounds each invocation, including reading a streamed body.
// Zero (the default) leaves timing entirely to the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(o *httpOptions) { o.timeout = d }
}

// StandardOpenAI creates an Adapter for an OpenAI-compatible chat endpoint.
// Each Run issues a single POST to url whose JSON body is the forwarded
// params merged with the message list (see api.MergeBody).
//
// A non-2xx response is reported as a backend error rather than passed
// through as text. In the default buffered mode a body that reads zero bytes
// fails with ErrEmptyBody whether or not the backend declared its length;
// the streaming modes yield no chunks for it.
func StandardOpenAI(url string, opts ...Option) *Adapter {
	o := httpOptions{
		client:  http.DefaultClient,
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(&o)
	}
	b := &httpBackend{url: url, opts: o}
	return New(b.run)
}

type httpBackend struct {
	url  string
	opts httpOptions
}

func (b *httpBackend) run(ctx context.Context, messages []api.Message, params api.Params) (*Stream, error) {
	// A signal that already fired means nothing may reach the network.
	if err := ctx.Err(); err != nil {
		return nil, api.NewAbortedError(err)
	}

	body, err := json.Marshal(api.MergeBody(params, messages))
	if err != nil {
		return nil, api.NewInvalidRequestError("params", fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	var (
		reqCtx context.Context
		cancel context.CancelFunc
	)
	if b.opts.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, b.opts.timeout)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, api.NewInvalidRequestError("url", fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if b.opts.mode == ModeSSE {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	for k, vs := range b.opts.headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if b.opts.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.opts.apiKey)
	}

	debug.Log("endpoint", "request",
		"method", http.MethodPost,
		"url", b.url,
		"mode", b.opts.mode.String(),
		"messages", len(messages),
		"body_bytes", len(body),
	)
	debug.Raw("endpoint", string(body))

	start := time.Now()
	httpResp, err := b.opts.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, mapRequestError(reqCtx, err)
	}

	debug.Log("endpoint", "response",
		"status", httpResp.StatusCode,
		"content_type", httpResp.Header.Get("Content-Type"),
		"content_length", httpResp.ContentLength,
		"duration", time.Since(start),
	)

	// The body check comes first: no body is a failure whatever the status.
	if httpResp.Body == nil || httpResp.Body == http.NoBody {
		cancel()
		return nil, api.NewEmptyBodyError(httpResp.StatusCode)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer cancel()
		defer httpResp.Body.Close()
		return nil, mapHTTPError(httpResp)
	}

	switch b.opts.mode {
	case ModeIncremental:
		return NewStream(reqCtx, func(ctx context.Context, emit EmitFunc) error {
			// Closing the stream must also abort a body read in progress.
			stop := context.AfterFunc(ctx, cancel)
			defer stop()
			defer cancel()
			defer httpResp.Body.Close()
			return decodeText(ctx, httpResp.Body, emit)
		}), nil

	case ModeSSE:
		return NewStream(reqCtx, func(ctx context.Context, emit EmitFunc) error {
			stop := context.AfterFunc(ctx, cancel)
			defer stop()
			defer cancel()
			defer httpResp.Body.Close()
			return parseSSEStream(ctx, httpResp.Body, emit)
		}), nil

	default:
		defer cancel()
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, mapRequestError(reqCtx, err)
		}
		debug.Raw("endpoint", string(data))
		if len(data) == 0 {
			return nil, api.NewEmptyBodyError(httpResp.StatusCode)
		}

		return FromChunks(string(data)), nil
	}
}
