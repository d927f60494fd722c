package api

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known message roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single chat turn. Adapters only read messages; callers own them.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Params holds forwarded parameters. Keys are opaque to the adapter and are
// passed through to the backend untouched. A nil Params means "use the
// backend defaults".
type Params map[string]any

// Clone returns a shallow copy of p. Cloning nil returns nil.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// MessagesKey is the request body field that always carries the message list.
const MessagesKey = "messages"

// MergeBody builds the JSON request body for a chat-like backend. Every
// forwarded parameter is copied first, then the messages field is set to the
// given list, so a forwarded "messages" key can never replace it. A nil list
// is sent as an empty JSON array, never as null.
func MergeBody(params Params, messages []Message) map[string]any {
	body := make(map[string]any, len(params)+1)
	for k, v := range params {
		body[k] = v
	}
	if messages == nil {
		messages = []Message{}
	}
	body[MessagesKey] = messages
	return body
}

// CompletionRequest is the body accepted by the proxy's completions endpoint.
type CompletionRequest struct {
	Messages []Message `json:"messages"`
	Params   Params    `json:"params,omitempty"`
	Stream   bool      `json:"stream,omitempty"`
}

// CompletionResponse is the non-streaming proxy response.
type CompletionResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ChunkEvent is the payload of a single streamed chunk.
type ChunkEvent struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
