// Command mock-backend runs a deterministic chat backend for local runs and
// tests of the chatlike server. The reply depends only on the last user
// message:
//
//   - "count from 1 to 5" answers "1, 2, 3, 4, 5"
//   - "respond with status NNN" fails with that HTTP status
//   - "respond with nothing" answers 204 No Content
//   - anything else answers "Hello, nice day!"
//
// By default the reply is the raw text body. With "stream": true in the
// request body or an Accept: text/event-stream header the reply is sent as
// Chat Completions SSE chunks, and with ?format=json as a Chat Completions
// JSON object.
//
// Configuration:
//
//	MOCK_PORT        - Listen port (default: 9090)
//	MOCK_CHUNK_DELAY - Pause between streamed chunks (default: 0)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	var delay time.Duration
	if v := os.Getenv("MOCK_CHUNK_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Error("invalid MOCK_CHUNK_DELAY", "value", v, "error", err)
			os.Exit(1)
		}
		delay = d
	}

	srv := &http.Server{Addr: ":" + port, Handler: newMux(delay)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port, "chunk_delay", delay)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func newMux(delay time.Duration) *http.ServeMux {
	b := &backend{chunkDelay: delay}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", b.handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// --- Request types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Handler ---

type backend struct {
	chunkDelay time.Duration
}

var statusPrompt = regexp.MustCompile(`respond with status (\d{3})`)

func (b *backend) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	lastMsg := strings.ToLower(getLastUserMessage(&req))

	if m := statusPrompt.FindStringSubmatch(lastMsg); m != nil {
		status, _ := strconv.Atoi(m[1])
		writeError(w, status, fmt.Sprintf("mock failure with status %d", status))
		return
	}
	if strings.Contains(lastMsg, "respond with nothing") {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	tokens := []string{"Hello", ", ", "nice", " ", "day", "!"}
	if strings.Contains(lastMsg, "count from 1 to 5") {
		tokens = []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
	}

	model := req.Model
	if model == "" {
		model = "mock-model"
	}

	switch {
	case req.Stream || strings.Contains(r.Header.Get("Accept"), "text/event-stream"):
		b.handleStreaming(w, r, model, tokens)
	case r.URL.Query().Get("format") == "json":
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(makeTextResponse(model, strings.Join(tokens, ""), len(tokens)))
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(strings.Join(tokens, "")))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    "mock_error",
		},
	})
}

func makeTextResponse(model, text string, tokenCount int) chatResponse {
	return chatResponse{
		ID:     "chatcmpl-mock-text",
		Object: "chat.completion",
		Model:  model,
		Choices: []chatChoice{
			{
				Index:        0,
				Message:      chatMsg{Role: "assistant", Content: text},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{PromptTokens: 10, CompletionTokens: tokenCount, TotalTokens: 10 + tokenCount},
	}
}

// --- Streaming ---

func (b *backend) handleStreaming(w http.ResponseWriter, r *http.Request, model string, tokens []string) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Send role chunk.
	writeSSEChunk(w, model, "", true)
	rc.Flush()

	for _, token := range tokens {
		if b.chunkDelay > 0 {
			select {
			case <-time.After(b.chunkDelay):
			case <-r.Context().Done():
				slog.Info("client went away", "error", r.Context().Err())
				return
			}
		}
		writeSSEChunk(w, model, token, false)
		rc.Flush()
	}

	writeFinishChunk(w, model, len(tokens))
	fmt.Fprintf(w, "data: [DONE]\n\n")
	rc.Flush()
}

func writeSSEChunk(w http.ResponseWriter, model, content string, isRole bool) {
	delta := map[string]any{}
	if isRole {
		delta["role"] = "assistant"
	}
	if content != "" {
		delta["content"] = content
	}

	chunk := map[string]any{
		"id":     "chatcmpl-mock-stream",
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"delta":         delta,
				"finish_reason": nil,
			},
		},
	}

	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeFinishChunk(w http.ResponseWriter, model string, tokenCount int) {
	chunk := map[string]any{
		"id":     "chatcmpl-mock-stream",
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"delta":         map[string]any{},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": tokenCount,
			"total_tokens":      10 + tokenCount,
		},
	}

	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// --- Models endpoint ---

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "mock-model", "object": "model", "owned_by": "chatlike-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Helpers ---

func getLastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}
