package endpoint

import (
	"context"

	"github.com/rhuss/chatlike/pkg/api"
)

// RunFunc is the streaming run function contract. ctx is the cancellation
// signal, messages are ordered oldest first, and params are forwarded to the
// backend untouched (nil means backend defaults).
type RunFunc func(ctx context.Context, messages []api.Message, params api.Params) (*Stream, error)

// Run calls f. It lets a plain function satisfy Runner.
func (f RunFunc) Run(ctx context.Context, messages []api.Message, params api.Params) (*Stream, error) {
	return f(ctx, messages, params)
}

// CompleteFunc is the non-streaming variant of RunFunc. It resolves to the
// full reply text.
type CompleteFunc func(ctx context.Context, messages []api.Message, params api.Params) (string, error)

// Runner is anything that can produce a text stream from a message history.
// Decorators accept a Runner and return a new Adapter.
type Runner interface {
	Run(ctx context.Context, messages []api.Message, params api.Params) (*Stream, error)
}

// Adapter is a chat-like endpoint. The run function is assigned once at
// construction and never changes, so adapters can be compared and cached by
// pointer.
type Adapter struct {
	run RunFunc
}

var _ Runner = (*Adapter)(nil)

// New wraps run as an Adapter. No validation is performed.
func New(run RunFunc) *Adapter {
	return &Adapter{run: run}
}

// Custom creates a fully customized Adapter. Invoking the adapter is the same
// as invoking run directly with the same arguments; errors propagate unchanged.
func Custom(run RunFunc) *Adapter {
	return New(run)
}

// FromComplete adapts a non-streaming implementation. The resulting stream
// emits the full reply as a single chunk.
func FromComplete(fn CompleteFunc) *Adapter {
	return New(func(ctx context.Context, messages []api.Message, params api.Params) (*Stream, error) {
		text, err := fn(ctx, messages, params)
		if err != nil {
			return nil, err
		}
		return FromChunks(text), nil
	})
}

// Run starts one invocation. See RunFunc.
func (a *Adapter) Run(ctx context.Context, messages []api.Message, params api.Params) (*Stream, error) {
	return a.run(ctx, messages, params)
}

// Complete runs the adapter and drains the stream into a single string.
func (a *Adapter) Complete(ctx context.Context, messages []api.Message, params api.Params) (string, error) {
	s, err := a.Run(ctx, messages, params)
	if err != nil {
		return "", err
	}
	return ReadAll(s)
}
