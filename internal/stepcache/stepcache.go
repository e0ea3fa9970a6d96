package stepcache

import (
	"context"
	"errors"
)

// ErrMiss is returned by Get when no result is stored for the step.
var ErrMiss = errors.New("step result not cached")

// Cache holds the serialized output of completed pipeline steps, keyed by meeting and step name.
type Cache interface {
	Put(ctx context.Context, meetingID, step string, payload []byte) error
	Get(ctx context.Context, meetingID, step string) ([]byte, error)
}
