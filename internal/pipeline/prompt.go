package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/imcaffiene/webinar-platform/internal/llm"
)

const summarizerSystemPrompt = `You are an expert summarizer. You write readable, concise, simple content. You are given a transcript of a meeting and you need to summarize it.

Use the following markdown structure for every output:

### Overview
Provide a detailed, engaging summary of the session's content. Focus on major features, user workflows, and any key takeaways. Write in a narrative style, using full sentences. Highlight unique or powerful aspects of the product, platform, or discussion.

### Notes
Break down key content into thematic sections with timestamp ranges. Each section should summarize key points, actions, or demos in bullet format.

Example:
#### Section Name
- Main point or demo shown here
- Another key insight or interaction
- Follow-up tool or explanation provided

#### Next Section
- Feature X automatically does Y
- Mention of integration with Z`

const summaryRequestPrefix = "Summarize the following meeting transcript: "

// BuildSummaryRequest sends the whole enriched transcript in a single user message.
func BuildSummaryRequest(entries []EnrichedEntry, model string) (llm.Request, error) {
	if entries == nil {
		entries = []EnrichedEntry{}
	}
	body, err := json.Marshal(entries)
	if err != nil {
		return llm.Request{}, fmt.Errorf("encode enriched transcript: %w", err)
	}
	return llm.Request{
		System: summarizerSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: summaryRequestPrefix + string(body)},
		},
		Model: model,
	}, nil
}
