package endpoint

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rhuss/chatlike/pkg/api"
	"github.com/rhuss/chatlike/pkg/debug"
)

// chatCompletionChunk is a single SSE chunk of a Chat Completions stream.
// Only the fields needed to extract text are decoded.
type chatCompletionChunk struct {
	ID      string            `json:"id"`
	Choices []chatChunkChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type chatChunkChoice struct {
	Index        int            `json:"index"`
	Delta        chatChunkDelta `json:"delta"`
	FinishReason *string        `json:"finish_reason"`
}

type chatChunkDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// parseSSEStream reads Chat Completions SSE chunks from body and emits the
// text content of each delta.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//	\n
//
// Malformed chunks are logged and skipped. An error object in the stream ends
// it with a backend error.
func parseSSEStream(ctx context.Context, body io.Reader, emit EmitFunc) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return api.NewAbortedError(err)
		}

		line := scanner.Text()

		// Empty lines, comments, and event/id fields carry no text.
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return nil
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", debug.Truncate(payload, 200),
			)
			continue
		}

		if chunk.Error != nil {
			return api.NewBackendError(0, chunk.Error.Message)
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta.Content == nil || *delta.Content == "" {
			continue
		}
		if err := emit(*delta.Content); err != nil {
			return api.NewAbortedError(err)
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return api.NewAbortedError(ctx.Err())
		}
		return api.NewTransportError(fmt.Errorf("SSE stream read error: %w", err))
	}
	return nil
}
