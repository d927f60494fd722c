// Package api defines the core types shared by the chatlike endpoint adapters
// and the HTTP proxy: chat messages, forwarded parameters, completion request
// and response envelopes, structured errors, and ID generation.
//
// The package performs no I/O. Messages serialize to the minimal
// Chat Completions shape ({"role": ..., "content": ...}) so they can be sent
// to any OpenAI-compatible backend unchanged.
//
// Core types:
//   - [Message]: one turn of a conversation (role + text content)
//   - [Params]: open mapping of backend-specific options, forwarded untouched
//   - [CompletionRequest]: inbound proxy request
//   - [APIError]: structured error with type, status, and cause
package api
