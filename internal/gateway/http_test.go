package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/meeting"
)

var errTestSecret = errors.New("secret upstream detail")

func newTestServer(env *testEnv) *httptest.Server {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	return httptest.NewServer(NewHTTPHandler(env.gateway, env.store, metricsHandler))
}

func postWebhook(t *testing.T, url, body, signature string) (*http.Response, map[string]string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/api/webhook", strings.NewReader(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if signature != "" {
		req.Header.Set("x-signature", signature)
	}
	req.Header.Set("x-api-key", "api-key")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("posting webhook: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestWebhookEndpoint_StatusMapping(t *testing.T) {
	env := newTestEnv()
	env.store.put(meeting.Meeting{ID: "m1", AgentID: "a1", Status: meeting.StatusUpcoming})
	srv := newTestServer(env)
	defer srv.Close()

	cases := []struct {
		name      string
		body      string
		signature string
		status    int
	}{
		{"ok", sessionStartedM1, validSignature, http.StatusOK},
		{"missing signature", sessionStartedM1, "", http.StatusBadRequest},
		{"bad signature", sessionStartedM1, "forged", http.StatusUnauthorized},
		{"malformed json", `{`, validSignature, http.StatusBadRequest},
		{"end active", sessionEndedM1, validSignature, http.StatusOK},
		{"end again", sessionEndedM1, validSignature, http.StatusNotFound},
		{"duplicate start", sessionStartedM1, validSignature, http.StatusNotFound},
	}
	for _, tc := range cases {
		resp, out := postWebhook(t, srv.URL, tc.body, tc.signature)
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: expected %d, got %d (%v)", tc.name, tc.status, resp.StatusCode, out)
		}
		if tc.status == http.StatusOK && out["status"] != "ok" {
			t.Fatalf("%s: expected status ok body, got %v", tc.name, out)
		}
		if tc.status != http.StatusOK && out["error"] == "" {
			t.Fatalf("%s: expected error body, got %v", tc.name, out)
		}
	}
}

func TestWebhookEndpoint_InternalErrorsAreOpaque(t *testing.T) {
	env := newTestEnv()
	env.calls.connectErr = errTestSecret
	env.store.put(meeting.Meeting{ID: "m1", AgentID: "a1", Status: meeting.StatusUpcoming})
	srv := newTestServer(env)
	defer srv.Close()

	resp, out := postWebhook(t, srv.URL, sessionStartedM1, validSignature)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if strings.Contains(out["error"], "secret") {
		t.Fatalf("internal error leaked cause: %v", out)
	}
}

func TestGetMeeting_ScopedToOwner(t *testing.T) {
	env := newTestEnv()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ended := started.Add(45 * time.Minute)
	env.store.put(meeting.Meeting{
		ID: "m1", UserID: "owner", AgentID: "a1", Status: meeting.StatusCompleted,
		StartedAt: &started, EndedAt: &ended, Summary: "### Overview",
	})
	srv := newTestServer(env)
	defer srv.Close()

	get := func(userID string) *http.Response {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/meetings/m1", nil)
		if userID != "" {
			req.Header.Set("X-User-ID", userID)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		return resp
	}

	resp := get("owner")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body meetingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Status != "completed" || body.DurationSeconds != 2700 {
		t.Fatalf("unexpected body: %+v", body)
	}

	other := get("intruder")
	other.Body.Close()
	if other.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for another user, got %d", other.StatusCode)
	}
	anon := get("")
	anon.Body.Close()
	if anon.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a user, got %d", anon.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv()
	srv := newTestServer(env)
	defer srv.Close()

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}
