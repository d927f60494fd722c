package endpoint

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rhuss/chatlike/pkg/api"
)

// emitInto returns an EmitFunc that appends chunks to dst.
func emitInto(dst *[]string) EmitFunc {
	return func(chunk string) error {
		*dst = append(*dst, chunk)
		return nil
	}
}

func TestParseSSEStream(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name: "content deltas",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n" +
				"data: [DONE]\n\n",
			want: []string{"a", "b"},
		},
		{
			name: "role only and empty deltas skipped",
			input: "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n" +
				"data: {\"choices\":[]}\n\n" +
				"data: [DONE]\n\n",
			want: []string{"x"},
		},
		{
			name: "comments and event fields ignored",
			input: ": keep-alive\n" +
				"event: message\n" +
				"id: 7\n" +
				"data:{\"choices\":[{\"delta\":{\"content\":\"tight\"}}]}\n\n",
			want: []string{"tight"},
		},
		{
			name: "malformed chunk skipped",
			input: "data: {not json\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n",
			want: []string{"ok"},
		},
		{
			name: "nothing after DONE",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"1\"}}]}\n\n" +
				"data: [DONE]\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"2\"}}]}\n\n",
			want: []string{"1"},
		},
		{
			name:  "eof without DONE",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"end\"}}]}\n",
			want:  []string{"end"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			err := parseSSEStream(context.Background(), strings.NewReader(tt.input), emitInto(&got))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("chunks = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSSEStream_ErrorObject(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{\"content\":\"par\"}}]}\n\n" +
		"data: {\"error\":{\"message\":\"context length exceeded\"}}\n\n"

	var got []string
	err := parseSSEStream(context.Background(), strings.NewReader(input), emitInto(&got))

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *api.APIError", err)
	}
	if apiErr.Type != api.ErrorTypeBackend {
		t.Errorf("Type = %q, want %q", apiErr.Type, api.ErrorTypeBackend)
	}
	if apiErr.Message != "context length exceeded" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if len(got) != 1 || got[0] != "par" {
		t.Errorf("chunks before error = %q, want [par]", got)
	}
}

func TestParseSSEStream_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n"
	var got []string
	err := parseSSEStream(ctx, strings.NewReader(input), emitInto(&got))
	if !errors.Is(err, api.ErrAborted) {
		t.Errorf("err = %v, want aborted", err)
	}
	if len(got) != 0 {
		t.Errorf("chunks = %q, want none", got)
	}
}

func TestParseSSEStream_EmitFailure(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n"
	err := parseSSEStream(context.Background(), strings.NewReader(input), func(string) error {
		return context.Canceled
	})
	if !errors.Is(err, api.ErrAborted) {
		t.Errorf("err = %v, want aborted", err)
	}
}
