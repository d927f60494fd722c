package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/rhuss/chatlike/pkg/api"
	"github.com/rhuss/chatlike/pkg/endpoint"
)

func TestInstrument_RecordsSuccessfulRun(t *testing.T) {
	const name = "instrument-ok"

	inner := endpoint.Custom(func(ctx context.Context, messages []api.Message, params api.Params) (*endpoint.Stream, error) {
		return endpoint.FromChunks("a", "b", "c"), nil
	})

	beforeRuns := counterValue(t, EndpointRunsTotal, name, StatusOK)
	beforeChunks := counterValue(t, EndpointChunksTotal, name)
	beforeFirst := histogramCount(t, EndpointFirstChunkLatency, name)

	text, err := Instrument(name, inner).Complete(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "abc" {
		t.Errorf("text = %q, want abc", text)
	}

	if d := counterValue(t, EndpointRunsTotal, name, StatusOK) - beforeRuns; d != 1 {
		t.Errorf("ok runs delta = %f, want 1", d)
	}
	if d := counterValue(t, EndpointChunksTotal, name) - beforeChunks; d != 3 {
		t.Errorf("chunks delta = %f, want 3", d)
	}
	if d := histogramCount(t, EndpointFirstChunkLatency, name) - beforeFirst; d != 1 {
		t.Errorf("first chunk observations delta = %d, want 1", d)
	}
}

func TestInstrument_RecordsRunError(t *testing.T) {
	const name = "instrument-error"
	sentinel := api.NewBackendError(502, "bad gateway")

	inner := endpoint.Custom(func(ctx context.Context, messages []api.Message, params api.Params) (*endpoint.Stream, error) {
		return nil, sentinel
	})

	before := counterValue(t, EndpointRunsTotal, name, StatusError)
	beforeLatency := histogramCount(t, EndpointLatency, name)

	_, err := Instrument(name, inner).Run(context.Background(), nil, nil)
	if err != sentinel {
		t.Fatalf("err = %v, want the inner error unchanged", err)
	}

	if d := counterValue(t, EndpointRunsTotal, name, StatusError) - before; d != 1 {
		t.Errorf("error runs delta = %f, want 1", d)
	}
	if d := histogramCount(t, EndpointLatency, name) - beforeLatency; d != 1 {
		t.Errorf("latency observations delta = %d, want 1", d)
	}
}

func TestInstrument_RecordsAbort(t *testing.T) {
	const name = "instrument-abort"

	inner := endpoint.Custom(func(ctx context.Context, messages []api.Message, params api.Params) (*endpoint.Stream, error) {
		return endpoint.NewStream(ctx, func(ctx context.Context, emit endpoint.EmitFunc) error {
			for {
				if err := emit("tick"); err != nil {
					return err
				}
			}
		}), nil
	})

	before := counterValue(t, EndpointRunsTotal, name, StatusAborted)

	s, err := Instrument(name, inner).Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Recv(); err != nil {
		t.Fatalf("Recv: %v", err)
	}
	s.Close()

	if d := counterValue(t, EndpointRunsTotal, name, StatusAborted) - before; d != 1 {
		t.Errorf("aborted runs delta = %f, want 1", d)
	}
}

func TestRunStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, StatusOK},
		{api.NewAbortedError(context.Canceled), StatusAborted},
		{endpoint.ErrStreamClosed, StatusAborted},
		{api.NewEmptyBodyError(204), StatusError},
		{errors.New("boom"), StatusError},
	}

	for _, tt := range tests {
		if got := RunStatus(tt.err); got != tt.want {
			t.Errorf("RunStatus(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
