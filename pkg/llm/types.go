package llm

import "context"

// Role is a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in the chat history sent to the backend.
type Message struct {
	Role    Role
	Content string
}

// Request is what ChatClient.Stream sends to the LLM backend.
type Request struct {
	SessionID   string
	Messages    []Message
	Model       string
	Temperature *float32
	MaxTokens   *int32
}

// StreamChunk is one piece of a streamed generation, mirroring the
// thinking/content/final distinction the backend emits.
type StreamChunk struct {
	Content    string
	IsThinking bool
	IsComplete bool
	IsFinal    bool
	Error      string
}

// ChatClient is the minimal surface agents and the generator need from
// the LLM backend. It exists so tests can substitute a fake without
// standing up a gRPC server.
type ChatClient interface {
	Stream(ctx context.Context, req Request) (<-chan StreamChunk, <-chan error)
	Close() error
}
