package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/imcaffiene/webinar-platform/internal/platform"
)

const (
	defaultRequestTimeout = 15 * time.Second
	maxErrorBody          = 2048
)

// RESTClient implements the call and chat ports over the platform's server-side REST API.
type RESTClient struct {
	apiKey      string
	serverToken string
	videoBase   string
	chatBase    string
	client      *http.Client
}

func NewRESTClient(apiKey, apiSecret, videoBaseURL, chatBaseURL string) (*RESTClient, error) {
	token, err := serverToken(apiSecret)
	if err != nil {
		return nil, err
	}
	return &RESTClient{
		apiKey:      apiKey,
		serverToken: token,
		videoBase:   strings.TrimRight(videoBaseURL, "/"),
		chatBase:    strings.TrimRight(chatBaseURL, "/"),
		client:      &http.Client{Timeout: defaultRequestTimeout},
	}, nil
}

// serverToken is the long-lived server credential: an HS256 JWT with the server claim.
func serverToken(secret string) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"server": true})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing server token: %w", err)
	}
	return signed, nil
}

func (c *RESTClient) EndCall(ctx context.Context, callType, callID string) error {
	path := fmt.Sprintf("/video/call/%s/%s/mark_ended", url.PathEscape(callType), url.PathEscape(callID))
	return c.do(ctx, c.videoBase, http.MethodPost, path, struct{}{}, nil)
}

func (c *RESTClient) ConnectAgent(ctx context.Context, callType, callID, agentID, instructions string) error {
	path := fmt.Sprintf("/video/call/%s/%s/realtime_agent", url.PathEscape(callType), url.PathEscape(callID))
	body := connectAgentRequest{AgentUserID: agentID, Instructions: instructions}
	return c.do(ctx, c.videoBase, http.MethodPost, path, body, nil)
}

func (c *RESTClient) RecentMessages(ctx context.Context, channelType, channelID string, limit int) ([]platform.ChatMessage, error) {
	path := fmt.Sprintf("/channels/%s/%s/query", url.PathEscape(channelType), url.PathEscape(channelID))
	body := queryChannelRequest{State: true}
	body.Messages.Limit = limit
	var resp queryChannelResponse
	if err := c.do(ctx, c.chatBase, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	out := make([]platform.ChatMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, platform.ChatMessage{ID: m.ID, Text: m.Text, UserID: m.User.ID})
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (c *RESTClient) UpsertUser(ctx context.Context, user platform.ChatUser) error {
	body := upsertUsersRequest{Users: map[string]chatUser{
		user.ID: {ID: user.ID, Name: user.Name, Image: user.Image},
	}}
	return c.do(ctx, c.chatBase, http.MethodPost, "/users", body, nil)
}

func (c *RESTClient) SendMessage(ctx context.Context, channelType, channelID, text string, as platform.ChatUser) error {
	path := fmt.Sprintf("/channels/%s/%s/message", url.PathEscape(channelType), url.PathEscape(channelID))
	body := sendMessageRequest{}
	body.Message.Text = text
	body.Message.UserID = as.ID
	return c.do(ctx, c.chatBase, http.MethodPost, path, body, nil)
}

func (c *RESTClient) do(ctx context.Context, base, method, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	u := base + path + "?api_key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.serverToken)
	req.Header.Set("Stream-Auth-Type", "jwt")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, string(snippet))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

type connectAgentRequest struct {
	AgentUserID  string `json:"agent_user_id"`
	Instructions string `json:"instructions"`
}

type queryChannelRequest struct {
	State    bool `json:"state"`
	Messages struct {
		Limit int `json:"limit"`
	} `json:"messages"`
}

type queryChannelResponse struct {
	Messages []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"messages"`
}

type chatUser struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

type upsertUsersRequest struct {
	Users map[string]chatUser `json:"users"`
}

type sendMessageRequest struct {
	Message struct {
		Text   string `json:"text"`
		UserID string `json:"user_id"`
	} `json:"message"`
}
