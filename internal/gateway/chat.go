package gateway

import (
	"context"
	"strings"
	"text/template"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/llm"
	"github.com/imcaffiene/webinar-platform/internal/meeting"
	"github.com/imcaffiene/webinar-platform/internal/platform"
)

var chatInstructionsTemplate = template.Must(template.New("chat").Parse(
	`You are an AI assistant helping the user revisit a recently completed meeting.
Below is a summary of the meeting, generated from the transcript:

{{.Summary}}

The following are your original instructions from the live meeting assistant. Please continue to follow these behavioral guidelines as you assist the user:

{{.Instructions}}

The user may ask questions about the meeting, request clarifications, or ask for follow-up actions.
Always base your responses on the meeting summary above.

You also have access to the recent conversation history between you and the user. Use the context of previous messages to provide relevant, coherent, and helpful responses. If the user's question refers to something discussed earlier, make sure to take that into account and maintain continuity in the conversation.

If the summary does not contain enough information to answer a question, politely let the user know.

Be concise, helpful, and focus on providing accurate information from the meeting and the ongoing conversation.`))

func chatInstructions(summary, instructions string) string {
	var b strings.Builder
	_ = chatInstructionsTemplate.Execute(&b, struct {
		Summary      string
		Instructions string
	}{summary, instructions})
	return b.String()
}

// buildChatRequest drops the triggering message if the platform already stored it, keeps the newest
// RecentMessageLimit prior messages that are not blank, and appends the new message last.
func buildChatRequest(m *meeting.Meeting, agent *meeting.Agent, history []platform.ChatMessage, e MessageNew, model string) llm.Request {
	prior := make([]platform.ChatMessage, 0, len(history))
	for _, h := range history {
		if e.MessageID != "" && h.ID == e.MessageID {
			continue
		}
		prior = append(prior, h)
	}
	if len(prior) > platform.RecentMessageLimit {
		prior = prior[len(prior)-platform.RecentMessageLimit:]
	}
	msgs := make([]llm.Message, 0, len(prior)+1)
	for _, h := range prior {
		if strings.TrimSpace(h.Text) == "" {
			continue
		}
		role := llm.RoleUser
		if h.UserID == agent.ID {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: h.Text})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: e.Text})
	return llm.Request{
		System:   chatInstructions(m.Summary, agent.Instructions),
		Messages: msgs,
		Model:    model,
	}
}

func (g *Gateway) complete(ctx context.Context, req llm.Request) (string, error) {
	started := time.Now()
	text, err := g.completer.Complete(ctx, req)
	g.metrics.ObserveLLM("chat_reply", started, err)
	return text, err
}
