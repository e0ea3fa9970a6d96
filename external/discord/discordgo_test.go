package discord

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/imcaffiene/webinar-platform/internal/discord"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestSession(t *testing.T, rt roundTripFunc) *discordgo.Session {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if rt != nil {
		s.Client = &http.Client{Transport: rt}
	}
	return s
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestSendChannelMessage_PostsToChannel(t *testing.T) {
	var gotPath string
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.Path
		return jsonResponse(http.StatusOK, `{"id":"msg-1","channel_id":"ch-1","content":"hi"}`), nil
	})

	c := &Client{session: s}
	if err := c.SendChannelMessage(context.Background(), "ch-1", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/channels/ch-1/messages") {
		t.Fatalf("unexpected request path: %s", gotPath)
	}
}

func TestSendChannelMessageWithFile_SendsMultipart(t *testing.T) {
	var gotContentType string
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		gotContentType = req.Header.Get("Content-Type")
		return jsonResponse(http.StatusOK, `{"id":"msg-1","channel_id":"ch-1"}`), nil
	})

	c := &Client{session: s}
	err := c.SendChannelMessageWithFile(context.Background(), discordpkg.FileMessage{
		ChannelID: "ch-1",
		Content:   "summary",
		Filename:  "transcript.txt",
		FileBody:  []byte("hello"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Fatalf("unexpected content type: %s", gotContentType)
	}
}

func TestSendChannelMessage_NotFoundIsReported(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"message":"Unknown Channel","code":10003}`), nil
	})

	c := &Client{session: s}
	err := c.SendChannelMessage(context.Background(), "ch-missing", "hi")
	if err == nil {
		t.Fatal("expected error for unknown channel")
	}
	if !strings.Contains(err.Error(), "ch-missing not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveChannelName_UsesStateCacheFirst(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		t.Errorf("unexpected REST call: %s %s", req.Method, req.URL.String())
		return jsonResponse(http.StatusInternalServerError, `{}`), nil
	})
	if err := s.State.GuildAdd(&discordgo.Guild{
		ID:       "guild-1",
		Channels: []*discordgo.Channel{{ID: "ch-1", GuildID: "guild-1", Name: "summaries"}},
	}); err != nil {
		t.Fatalf("failed to add guild to state: %v", err)
	}

	c := &Client{session: s}
	if got := c.ResolveChannelName(context.Background(), "ch-1"); got != "summaries" {
		t.Fatalf("expected summaries, got %q", got)
	}
}

func TestResolveChannelName_FallsBackToID(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"message":"Unknown Channel","code":10003}`), nil
	})

	c := &Client{session: s}
	if got := c.ResolveChannelName(context.Background(), "ch-2"); got != "ch-2" {
		t.Fatalf("expected id fallback, got %q", got)
	}
}

func TestTruncateContent(t *testing.T) {
	long := strings.Repeat("a", maxMessageLength+10)
	got := truncateContent(long)
	if len([]rune(got)) != maxMessageLength {
		t.Fatalf("expected %d runes, got %d", maxMessageLength, len([]rune(got)))
	}
	if truncateContent("short") != "short" {
		t.Fatal("short content should be unchanged")
	}
}
