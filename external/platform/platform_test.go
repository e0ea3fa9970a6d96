package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/imcaffiene/webinar-platform/internal/platform"
)

func TestHMACVerifier(t *testing.T) {
	v := NewHMACVerifier("secret")
	body := []byte(`{"type":"call.session_started"}`)
	sig := v.Sign(body)

	if !v.Verify(body, sig) {
		t.Fatal("expected valid signature to verify")
	}
	if !v.Verify(body, strings.ToUpper(sig)) {
		t.Fatal("expected uppercase hex to verify")
	}
	if v.Verify([]byte(`{"type":"call.session_started" }`), sig) {
		t.Fatal("signature must cover exact bytes")
	}
	if v.Verify(body, "not-hex") {
		t.Fatal("expected malformed signature to fail")
	}
	if v.Verify(body, "") {
		t.Fatal("expected empty signature to fail")
	}
	if NewHMACVerifier("").Verify(body, sig) {
		t.Fatal("expected verifier without secret to reject")
	}
}

type capturedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

func newCaptureServer(t *testing.T, respond string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var (
		mu  sync.Mutex
		got []capturedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		got = append(got, capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			body:   body,
		})
		mu.Unlock()
		_, _ = w.Write([]byte(respond))
	}))
	t.Cleanup(server.Close)
	return server, &got
}

func TestRESTClient_EndCall(t *testing.T) {
	server, got := newCaptureServer(t, `{}`)
	c, err := NewRESTClient("key", "secret", server.URL, server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.EndCall(context.Background(), platform.DefaultCallType, "m1"); err != nil {
		t.Fatalf("EndCall error: %v", err)
	}
	req := (*got)[0]
	if req.path != "/video/call/default/m1/mark_ended" {
		t.Fatalf("unexpected path: %s", req.path)
	}
	if req.query != "api_key=key" {
		t.Fatalf("unexpected query: %s", req.query)
	}
	tok, err := jwt.Parse(req.auth, func(*jwt.Token) (any, error) { return []byte("secret"), nil })
	if err != nil || !tok.Valid {
		t.Fatalf("expected valid server token, got err=%v", err)
	}
}

func TestRESTClient_ConnectAgent(t *testing.T) {
	server, got := newCaptureServer(t, `{}`)
	c, _ := NewRESTClient("key", "secret", server.URL, server.URL)
	if err := c.ConnectAgent(context.Background(), "default", "m1", "a1", "be helpful"); err != nil {
		t.Fatalf("ConnectAgent error: %v", err)
	}
	req := (*got)[0]
	if req.body["agent_user_id"] != "a1" || req.body["instructions"] != "be helpful" {
		t.Fatalf("unexpected body: %+v", req.body)
	}
}

func TestRESTClient_RecentMessagesKeepsNewest(t *testing.T) {
	server, got := newCaptureServer(t, `{"messages":[
		{"id":"1","text":"a","user":{"id":"u1"}},
		{"id":"2","text":"b","user":{"id":"a1"}},
		{"id":"3","text":"c","user":{"id":"u1"}}
	]}`)
	c, _ := NewRESTClient("key", "secret", server.URL, server.URL)
	msgs, err := c.RecentMessages(context.Background(), platform.MessagingChannel, "m1", 2)
	if err != nil {
		t.Fatalf("RecentMessages error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "2" || msgs[1].ID != "3" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if msgs[0].UserID != "a1" {
		t.Fatalf("unexpected user id: %s", msgs[0].UserID)
	}
	if (*got)[0].path != "/channels/messaging/m1/query" {
		t.Fatalf("unexpected path: %s", (*got)[0].path)
	}
}

func TestRESTClient_SendMessageAsUser(t *testing.T) {
	server, got := newCaptureServer(t, `{}`)
	c, _ := NewRESTClient("key", "secret", server.URL, server.URL)
	err := c.SendMessage(context.Background(), platform.MessagingChannel, "m1", "hello", platform.ChatUser{ID: "a1"})
	if err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	msg, _ := (*got)[0].body["message"].(map[string]any)
	if msg["text"] != "hello" || msg["user_id"] != "a1" {
		t.Fatalf("unexpected message body: %+v", (*got)[0].body)
	}
}

func TestRESTClient_UpsertUser(t *testing.T) {
	server, got := newCaptureServer(t, `{}`)
	c, _ := NewRESTClient("key", "secret", server.URL, server.URL)
	err := c.UpsertUser(context.Background(), platform.ChatUser{ID: "a1", Name: "Bot", Image: "https://img"})
	if err != nil {
		t.Fatalf("UpsertUser error: %v", err)
	}
	users, _ := (*got)[0].body["users"].(map[string]any)
	if _, ok := users["a1"]; !ok {
		t.Fatalf("expected user a1 in body: %+v", (*got)[0].body)
	}
}

func TestRESTClient_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c, _ := NewRESTClient("key", "secret", server.URL, server.URL)
	if err := c.EndCall(context.Background(), "default", "m1"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
