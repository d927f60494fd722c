package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rhuss/chatlike/pkg/api"
)

// SSE event names written by the completions endpoint.
const (
	eventChunk = "chunk"
	eventDone  = "done"
	eventError = "error"
)

// writerState tracks the state of an SSE writer.
type writerState int

const (
	writerIdle      writerState = iota // Initial state, no writes yet
	writerStreaming                    // At least one event has been written
	writerCompleted                    // Terminal event sent
)

// sseWriter writes the chunks of one completion as server-sent events.
// Headers are sent lazily with the first event, so a run that fails before
// producing anything can still be answered with a JSON error.
//
// An sseWriter is used by a single handler goroutine.
type sseWriter struct {
	w     http.ResponseWriter
	rc    *http.ResponseController
	id    string
	state writerState
}

func newSSEWriter(w http.ResponseWriter, id string) *sseWriter {
	return &sseWriter{
		w:  w,
		rc: http.NewResponseController(w),
		id: id,
	}
}

// WriteChunk sends one chunk event:
//
//	event: chunk
//	data: {"id":"...","text":"..."}
func (s *sseWriter) WriteChunk(text string) error {
	return s.writeEvent(eventChunk, api.ChunkEvent{ID: s.id, Text: text})
}

// WriteDone sends the done event followed by the [DONE] sentinel.
func (s *sseWriter) WriteDone() error {
	if err := s.writeEvent(eventDone, api.CompletionResponse{ID: s.id}); err != nil {
		return err
	}
	return s.finish()
}

// WriteError sends an error event followed by the [DONE] sentinel.
func (s *sseWriter) WriteError(apiErr *api.APIError) error {
	if err := s.writeEvent(eventError, api.ErrorResponse{Error: apiErr}); err != nil {
		return err
	}
	return s.finish()
}

func (s *sseWriter) hasStartedStreaming() bool {
	return s.state != writerIdle
}

func (s *sseWriter) writeEvent(name string, payload any) error {
	if s.state == writerCompleted {
		return errors.New("cannot write event: writer is completed")
	}

	if s.state == writerIdle {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.state = writerStreaming
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

func (s *sseWriter) finish() error {
	s.state = writerCompleted
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("failed to write [DONE]: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush [DONE]: %w", err)
	}
	return nil
}
