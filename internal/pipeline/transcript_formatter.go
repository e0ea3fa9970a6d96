package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/meeting"
	"github.com/imcaffiene/webinar-platform/internal/webhook"
)

const transcriptTimeLayout = "2006-01-02 15:04:05"

func buildTranscriptText(m *meeting.Meeting, entries []EnrichedEntry, timezone string, loc *time.Location) []byte {
	participants := canonicalParticipants(entries)
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.DisplayName)
	}

	lines := []string{
		fmt.Sprintf("Meeting: %s", m.Name),
		fmt.Sprintf("Period: %s ~ %s (%s)", formatOptionalTime(m.StartedAt, loc), formatOptionalTime(m.EndedAt, loc), timezone),
		fmt.Sprintf("Participants: %s", strings.Join(names, ", ")),
		"",
	}
	base, hasBase := firstTimestamp(entries)
	for _, e := range entries {
		var elapsed time.Duration
		if ts, ok := timestampMillis(e.StartTS); ok && hasBase {
			elapsed = time.Duration(ts-base) * time.Millisecond
		}
		if elapsed < 0 {
			elapsed = 0
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", formatElapsedHMS(elapsed), e.Speaker.Name, e.Text))
	}
	return []byte(strings.Join(lines, "\n"))
}

func buildSummaryWebhookPayload(m *meeting.Meeting, entries []EnrichedEntry, summary string, transcriptText []byte, loc *time.Location) webhook.SummaryWebhookPayload {
	endedAt := time.Now()
	if m.EndedAt != nil {
		endedAt = *m.EndedAt
	}
	var startedAt *time.Time
	if m.StartedAt != nil {
		s := m.StartedAt.In(safeLocation(loc))
		startedAt = &s
	}

	return webhook.SummaryWebhookPayload{
		SchemaVersion:   webhook.SummarySchemaVersion,
		MeetingID:       m.ID,
		MeetingName:     m.Name,
		StartedAt:       startedAt,
		EndedAt:         endedAt.In(safeLocation(loc)),
		DurationSeconds: int64(m.Duration().Seconds()),
		Participants:    canonicalParticipants(entries),
		SegmentCount:    len(entries),
		Summary:         summary,
		TranscriptText:  string(transcriptText),
	}
}

// canonicalParticipants lists each speaker once, ordered by display name then id.
func canonicalParticipants(entries []EnrichedEntry) []webhook.Participant {
	bySpeaker := make(map[string]webhook.Participant, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.SpeakerID) == "" {
			continue
		}
		if _, ok := bySpeaker[e.SpeakerID]; ok {
			continue
		}
		name := e.Speaker.Name
		if name == "" {
			name = e.SpeakerID
		}
		bySpeaker[e.SpeakerID] = webhook.Participant{
			SpeakerID:   e.SpeakerID,
			DisplayName: name,
			Kind:        string(e.Speaker.Kind),
		}
	}
	list := make([]webhook.Participant, 0, len(bySpeaker))
	for _, p := range bySpeaker {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		in := strings.ToLower(list[i].DisplayName)
		jn := strings.ToLower(list[j].DisplayName)
		if in != jn {
			return in < jn
		}
		return list[i].SpeakerID < list[j].SpeakerID
	})
	return list
}

func firstTimestamp(entries []EnrichedEntry) (float64, bool) {
	for _, e := range entries {
		if ts, ok := timestampMillis(e.StartTS); ok {
			return ts, true
		}
	}
	return 0, false
}

func timestampMillis(n json.Number) (float64, bool) {
	s := n.String()
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatOptionalTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(safeLocation(loc)).Format(transcriptTimeLayout)
}

func formatElapsedHMS(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func safeLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
