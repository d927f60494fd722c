// Package endpoint defines the chat-like endpoint adapter: a swappable value
// that turns a message history into a lazy stream of text chunks.
//
// An [Adapter] wraps exactly one [RunFunc]. Two factories produce adapters:
//
//   - [StandardOpenAI] posts the messages (merged with forwarded params) to an
//     OpenAI-compatible HTTP endpoint and streams the response text back.
//   - [Custom] installs any caller-supplied run function unchanged, for
//     backends that are not HTTP-shaped (local inference, test doubles,
//     decorators such as circuit breakers or instrumentation).
//
// Cancellation flows through the context passed to Run. A context that is
// done before or during the request makes Run fail with an error matching
// [api.ErrAborted]; once a [Stream] has been returned, cancellation ends the
// stream early instead.
//
// Adapters hold no mutable state and are safe for concurrent use. Every Run
// allocates its own request and stream.
package endpoint
