package llm

import "context"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Request is one non-streaming completion. Model overrides the configured default when set.
type Request struct {
	System   string
	Messages []Message
	Model    string
}

type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
