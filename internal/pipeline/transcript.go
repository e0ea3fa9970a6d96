package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// maxLineBytes bounds a single transcript record.
const maxLineBytes = 1 << 20

// TranscriptEntry is one record of the newline-delimited transcript artifact.
// Timestamps are kept as the source wrote them.
type TranscriptEntry struct {
	SpeakerID string      `json:"speaker_id"`
	Type      string      `json:"type"`
	Text      string      `json:"text"`
	StartTS   json.Number `json:"start_ts"`
	StopTS    json.Number `json:"stop_ts"`
}

// ParseTranscript decodes one entry per non-blank line, in source order.
// Any malformed line fails the whole parse.
func ParseTranscript(data []byte) ([]TranscriptEntry, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var entries []TranscriptEntry
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e TranscriptEntry
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("transcript line %d: %w", lineNo, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("transcript line %d: trailing data after record", lineNo)
		}
		if strings.TrimSpace(e.SpeakerID) == "" {
			return nil, fmt.Errorf("transcript line %d: missing speaker_id", lineNo)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("transcript line %d: %w", lineNo+1, err)
	}
	return entries, nil
}

// DistinctSpeakerIDs returns each speaker id once, in first-seen order.
func DistinctSpeakerIDs(entries []TranscriptEntry) []string {
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0)
	for _, e := range entries {
		if _, ok := seen[e.SpeakerID]; ok {
			continue
		}
		seen[e.SpeakerID] = struct{}{}
		ids = append(ids, e.SpeakerID)
	}
	return ids
}
