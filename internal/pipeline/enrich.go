package pipeline

import (
	"context"
	"fmt"

	"github.com/imcaffiene/webinar-platform/internal/repository"
	"golang.org/x/sync/errgroup"
)

const UnknownSpeakerName = "Unknown"

type SpeakerKind string

const (
	SpeakerUser    SpeakerKind = "user"
	SpeakerAgent   SpeakerKind = "agent"
	SpeakerUnknown SpeakerKind = "unknown"
)

type Speaker struct {
	Name string      `json:"name"`
	Kind SpeakerKind `json:"kind"`
}

type EnrichedEntry struct {
	TranscriptEntry
	Speaker Speaker `json:"speaker"`
}

// ResolveSpeakers looks up every distinct speaker with one user query and one agent query,
// run concurrently. A user match wins over an agent match.
func ResolveSpeakers(ctx context.Context, users repository.UserRepository, agents repository.AgentRepository, ids []string) (map[string]Speaker, error) {
	resolved := make(map[string]Speaker, len(ids))
	if len(ids) == 0 {
		return resolved, nil
	}

	var (
		userNames  = make(map[string]string)
		agentNames = make(map[string]string)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := users.ListUsersByIDs(gctx, ids)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		for _, u := range list {
			userNames[u.ID] = u.Name
		}
		return nil
	})
	g.Go(func() error {
		list, err := agents.ListAgentsByIDs(gctx, ids)
		if err != nil {
			return fmt.Errorf("list agents: %w", err)
		}
		for _, a := range list {
			agentNames[a.ID] = a.Name
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		switch {
		case hasKey(userNames, id):
			resolved[id] = Speaker{Name: userNames[id], Kind: SpeakerUser}
		case hasKey(agentNames, id):
			resolved[id] = Speaker{Name: agentNames[id], Kind: SpeakerAgent}
		default:
			resolved[id] = Speaker{Name: UnknownSpeakerName, Kind: SpeakerUnknown}
		}
	}
	return resolved, nil
}

// Enrich attaches a speaker to every entry without reordering.
func Enrich(ctx context.Context, users repository.UserRepository, agents repository.AgentRepository, entries []TranscriptEntry) ([]EnrichedEntry, error) {
	speakers, err := ResolveSpeakers(ctx, users, agents, DistinctSpeakerIDs(entries))
	if err != nil {
		return nil, err
	}
	out := make([]EnrichedEntry, len(entries))
	for i, e := range entries {
		out[i] = EnrichedEntry{TranscriptEntry: e, Speaker: speakers[e.SpeakerID]}
	}
	return out, nil
}

func hasKey(m map[string]string, k string) bool {
	_, ok := m[k]
	return ok
}
