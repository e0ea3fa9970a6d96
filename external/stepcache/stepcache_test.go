package stepcache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/repository"
	"github.com/imcaffiene/webinar-platform/internal/stepcache"
	"github.com/redis/go-redis/v9"
)

type mockStepResults struct {
	rows map[string][]byte
	err  error
}

func (m *mockStepResults) SaveStepResult(_ context.Context, meetingID, step string, payload []byte) error {
	if m.err != nil {
		return m.err
	}
	m.rows[meetingID+"/"+step] = payload
	return nil
}

func (m *mockStepResults) LoadStepResult(_ context.Context, meetingID, step string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.rows[meetingID+"/"+step]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func TestStoreCache_RoundTrip(t *testing.T) {
	c := NewStoreCache(&mockStepResults{rows: map[string][]byte{}})
	ctx := context.Background()

	if _, err := c.Get(ctx, "m1", "fetch"); !errors.Is(err, stepcache.ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
	if err := c.Put(ctx, "m1", "fetch", []byte("payload")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, err := c.Get(ctx, "m1", "fetch")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("unexpected payload: %s", got)
	}
}

func TestStoreCache_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	c := NewStoreCache(&mockStepResults{err: boom})
	if _, err := c.Get(context.Background(), "m1", "fetch"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestCacheKey(t *testing.T) {
	if got := cacheKey("m1", "parse"); got != "pipeline:step:m1:parse" {
		t.Fatalf("unexpected key: %s", got)
	}
}

// Runs against a real server when REDIS_TEST_URL is set.
func TestRedisCache_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parsing REDIS_TEST_URL: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	c := NewRedisCache(client, time.Minute)
	ctx := context.Background()
	meetingID := "test-" + time.Now().Format("150405.000000000")

	if _, err := c.Get(ctx, meetingID, "fetch"); !errors.Is(err, stepcache.ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
	if err := c.Put(ctx, meetingID, "fetch", []byte("payload")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, err := c.Get(ctx, meetingID, "fetch")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("unexpected payload: %s", got)
	}
}
