package platform

import "context"

const (
	DefaultCallType    = "default"
	MessagingChannel   = "messaging"
	RecentMessageLimit = 5
)

type ChatUser struct {
	ID    string
	Name  string
	Image string
}

type ChatMessage struct {
	ID     string
	Text   string
	UserID string
}

// CallController drives live video calls on the platform.
type CallController interface {
	EndCall(ctx context.Context, callType, callID string) error
	// ConnectAgent attaches the realtime assistant for agentID to the call and primes it with instructions.
	ConnectAgent(ctx context.Context, callType, callID, agentID, instructions string) error
}

type ChatChannel interface {
	// RecentMessages returns up to limit of the newest messages, oldest first.
	RecentMessages(ctx context.Context, channelType, channelID string, limit int) ([]ChatMessage, error)
	UpsertUser(ctx context.Context, user ChatUser) error
	SendMessage(ctx context.Context, channelType, channelID, text string, as ChatUser) error
}

// Verifier checks the webhook signature over the exact request bytes.
type Verifier interface {
	Verify(body []byte, signature string) bool
}
