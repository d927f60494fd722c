package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/chatlike/pkg/api"
	"github.com/rhuss/chatlike/pkg/endpoint"
)

// Recovery returns middleware that catches panics raised by the wrapped
// runner and converts them to server errors. Panics while pulling chunks
// from a static or decorated stream are caught as well; the stream then
// ends with the server error.
func Recovery() Middleware {
	return func(next endpoint.Runner) endpoint.Runner {
		return endpoint.RunFunc(func(ctx context.Context, messages []api.Message, params api.Params) (s *endpoint.Stream, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic in runner", "request_id", RequestIDFromContext(ctx), "panic", r)
					s = nil
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			inner, err := next.Run(ctx, messages, params)
			if err != nil {
				return nil, err
			}
			return recoverStream(ctx, inner), nil
		})
	}
}

// recoverStream pulls from inner on the consumer goroutine and turns a panic
// into a terminal server error.
func recoverStream(ctx context.Context, inner *endpoint.Stream) *endpoint.Stream {
	return endpoint.NewStream(ctx, func(ctx context.Context, emit endpoint.EmitFunc) (retErr error) {
		stop := context.AfterFunc(ctx, func() { inner.Close() })
		defer stop()
		defer inner.Close()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in stream", "request_id", RequestIDFromContext(ctx), "panic", r)
				retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
			}
		}()
		for chunk, err := range inner.Chunks() {
			if err != nil {
				return err
			}
			if err := emit(chunk); err != nil {
				return api.NewAbortedError(err)
			}
		}
		return nil
	})
}
