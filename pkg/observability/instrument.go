package observability

import (
	"context"
	"sync"
	"time"

	"github.com/rhuss/chatlike/pkg/api"
	"github.com/rhuss/chatlike/pkg/endpoint"
)

// Run outcomes used as the status label of chatlike_endpoint_runs_total.
const (
	StatusOK      = "ok"
	StatusAborted = "aborted"
	StatusError   = "error"
)

// Instrument returns an adapter that runs next and records endpoint metrics
// under the given name. A run is recorded once, when its stream ends or when
// Run itself fails.
func Instrument(name string, next endpoint.Runner) *endpoint.Adapter {
	return endpoint.Custom(func(ctx context.Context, messages []api.Message, params api.Params) (*endpoint.Stream, error) {
		start := time.Now()

		s, err := next.Run(ctx, messages, params)
		if err != nil {
			recordRun(name, start, err)
			return nil, err
		}

		var first sync.Once
		return endpoint.Watch(s,
			func(string) {
				first.Do(func() {
					EndpointFirstChunkLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
				})
				EndpointChunksTotal.WithLabelValues(name).Inc()
			},
			func(err error) { recordRun(name, start, err) },
		), nil
	})
}

// RunStatus classifies the terminal error of a run.
func RunStatus(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case endpoint.IsAbort(err):
		return StatusAborted
	default:
		return StatusError
	}
}

func recordRun(name string, start time.Time, err error) {
	EndpointRunsTotal.WithLabelValues(name, RunStatus(err)).Inc()
	EndpointLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
