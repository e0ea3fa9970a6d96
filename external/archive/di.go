package archive

import (
	"context"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/archive"
	"github.com/imcaffiene/webinar-platform/internal/config"
	"github.com/samber/do/v2"
)

const awsConfigTimeout = 10 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (archive.Store, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.ArchiveS3Bucket == "" {
			return archive.NoopStore{}, nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), awsConfigTimeout)
		defer cancel()
		return NewS3Store(ctx, c.ArchiveS3Bucket, c.ArchiveS3Prefix, c.ArchiveS3Region, c.ArchiveS3Endpoint)
	})
}
