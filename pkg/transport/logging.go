package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/chatlike/pkg/api"
	"github.com/rhuss/chatlike/pkg/endpoint"
)

// Logging returns middleware that emits one structured log entry per run.
// The entry is written when the stream ends, so it carries the total
// duration and the number of chunks delivered. A run that fails before
// producing a stream is logged immediately.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next endpoint.Runner) endpoint.Runner {
		return endpoint.RunFunc(func(ctx context.Context, messages []api.Message, params api.Params) (*endpoint.Stream, error) {
			start := time.Now()
			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.Int("messages", len(messages)),
			}
			if model, ok := params["model"].(string); ok {
				attrs = append(attrs, slog.String("model", model))
			}

			s, err := next.Run(ctx, messages, params)
			if err != nil {
				logEnd(ctx, logger, attrs, start, 0, err)
				return nil, err
			}

			chunks := 0
			return endpoint.Watch(s,
				func(string) { chunks++ },
				func(err error) { logEnd(ctx, logger, attrs, start, chunks, err) },
			), nil
		})
	}
}

func logEnd(ctx context.Context, logger *slog.Logger, attrs []slog.Attr, start time.Time, chunks int, err error) {
	attrs = append(attrs,
		slog.Int("chunks", chunks),
		slog.Duration("duration", time.Since(start)),
	)
	switch {
	case err == nil:
		logger.LogAttrs(ctx, slog.LevelInfo, "run completed", attrs...)
	case endpoint.IsAbort(err):
		attrs = append(attrs, slog.String("reason", err.Error()))
		logger.LogAttrs(ctx, slog.LevelInfo, "run aborted", attrs...)
	default:
		attrs = append(attrs, slog.String("error", err.Error()))
		logger.LogAttrs(ctx, slog.LevelError, "run failed", attrs...)
	}
}
