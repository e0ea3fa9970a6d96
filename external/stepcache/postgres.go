package stepcache

import (
	"context"
	"errors"

	"github.com/imcaffiene/webinar-platform/internal/repository"
	"github.com/imcaffiene/webinar-platform/internal/stepcache"
)

// StoreCache keeps step results in the pipeline_step_results table.
type StoreCache struct {
	store repository.StepResultRepository
}

func NewStoreCache(store repository.StepResultRepository) *StoreCache {
	return &StoreCache{store: store}
}

func (c *StoreCache) Put(ctx context.Context, meetingID, step string, payload []byte) error {
	return c.store.SaveStepResult(ctx, meetingID, step, payload)
}

func (c *StoreCache) Get(ctx context.Context, meetingID, step string) ([]byte, error) {
	b, err := c.store.LoadStepResult(ctx, meetingID, step)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, stepcache.ErrMiss
	}
	return b, err
}
