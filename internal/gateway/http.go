package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/meeting"
	"github.com/imcaffiene/webinar-platform/internal/repository"
)

const (
	maxWebhookBody = 1 << 20

	headerSignature = "X-Signature"
	headerAPIKey    = "X-Api-Key"
	// headerUserID is set by the upstream auth layer after it authenticates the caller.
	headerUserID = "X-User-ID"
)

type server struct {
	gateway  *Gateway
	meetings repository.MeetingRepository
}

// NewHTTPHandler mounts the webhook endpoint, health and metrics endpoints, and the meeting read endpoint.
func NewHTTPHandler(gw *Gateway, meetings repository.MeetingRepository, metricsHandler http.Handler) http.Handler {
	s := &server{gateway: gw, meetings: meetings}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/webhook", s.handleWebhook)
	mux.HandleFunc("GET /api/meetings/{id}", s.handleGetMeeting)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	return mux
}

func (s *server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	res := s.gateway.Handle(r.Context(), Delivery{
		Body:      body,
		Signature: r.Header.Get(headerSignature),
		APIKey:    r.Header.Get(headerAPIKey),
	})
	if !res.OK() {
		msg := res.Err.Message
		if res.Err.Kind == KindInternal {
			msg = "internal error"
		}
		writeError(w, res.Err.Kind.HTTPStatus(), msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type meetingResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	AgentID         string     `json:"agentId"`
	Status          string     `json:"status"`
	StartedAt       *time.Time `json:"startedAt"`
	EndedAt         *time.Time `json:"endedAt"`
	TranscriptURL   string     `json:"transcriptUrl,omitempty"`
	RecordingURL    string     `json:"recordingUrl,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	DurationSeconds int64      `json:"duration"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func newMeetingResponse(m *meeting.Meeting) meetingResponse {
	return meetingResponse{
		ID:              m.ID,
		Name:            m.Name,
		AgentID:         m.AgentID,
		Status:          string(m.Status),
		StartedAt:       m.StartedAt,
		EndedAt:         m.EndedAt,
		TranscriptURL:   m.TranscriptURL,
		RecordingURL:    m.RecordingURL,
		Summary:         m.Summary,
		DurationSeconds: int64(m.Duration().Seconds()),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func (s *server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	m, err := s.meetings.GetMeetingForUser(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "meeting not found")
			return
		}
		slog.Error("failed to load meeting", "meeting_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, newMeetingResponse(m))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
