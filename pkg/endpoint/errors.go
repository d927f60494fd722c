package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rhuss/chatlike/pkg/api"
	"github.com/rhuss/chatlike/pkg/debug"
)

// chatErrorResponse is the error format returned by Chat Completions backends.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// mapRequestError converts a failure from sending the request or reading the
// body into an APIError. Context cancellation and deadlines map to aborted;
// anything else is a transport failure.
func mapRequestError(ctx context.Context, err error) *api.APIError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return api.NewAbortedError(ctxErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return api.NewAbortedError(err)
	}
	return api.NewTransportError(err)
}

// mapHTTPError converts a response with a non-2xx status code into an
// APIError. The backend message is taken from an OpenAI-style error body
// when present, otherwise from the leading text of the body.
func mapHTTPError(resp *http.Response) *api.APIError {
	message := extractErrorMessage(resp.Body)
	if message == "" {
		message = fmt.Sprintf("backend returned HTTP %d", resp.StatusCode)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &api.APIError{
			Type:       api.ErrorTypeTooManyRequests,
			Message:    message,
			StatusCode: resp.StatusCode,
		}
	}
	return api.NewBackendError(resp.StatusCode, message)
}

// extractErrorMessage reads at most 4 KiB of body and returns a readable
// error message from it.
func extractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp chatErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}

	return debug.Truncate(strings.TrimSpace(string(data)), 200)
}

// IsAbort reports whether err means the run was cancelled by its caller
// rather than failed: an aborted APIError, a context error, or a stream the
// consumer closed.
func IsAbort(err error) bool {
	return errors.Is(err, api.ErrAborted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrStreamClosed)
}
