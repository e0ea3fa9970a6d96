package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/webhook"
)

const (
	defaultSendTimeout = 15 * time.Second
	maxSendAttempts    = 3
	retryStep          = 500 * time.Millisecond
	errorBodyLimit     = 512
)

// HTTPSender posts summaries as JSON. Receivers dedupe on the Idempotency-Key header,
// which is stable per meeting, so a retried or repeated delivery is safe.
type HTTPSender struct {
	webhookURL string
	client     *http.Client
	retryStep  time.Duration
}

func NewHTTPSender(webhookURL string) webhook.Sender {
	return &HTTPSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: defaultSendTimeout},
		retryStep:  retryStep,
	}
}

func (s *HTTPSender) SendSummary(ctx context.Context, payload webhook.SummaryWebhookPayload) error {
	if s.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal summary payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		retryable, err := s.post(ctx, payload, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable || attempt == maxSendAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("summary webhook: %w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(time.Duration(attempt) * s.retryStep):
		}
	}
	return lastErr
}

// post reports whether a failed delivery is worth another try: transport errors and 5xx are, 4xx is not.
func (s *HTTPSender) post(ctx context.Context, payload webhook.SummaryWebhookPayload, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Summary-Schema-Version", payload.SchemaVersion)
	req.Header.Set("Idempotency-Key", idempotencyKey(payload))

	resp, err := s.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("summary webhook: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return false, nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	err = fmt.Errorf("summary webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests, err
}

func idempotencyKey(payload webhook.SummaryWebhookPayload) string {
	return "summary:" + payload.SchemaVersion + ":" + payload.MeetingID
}
