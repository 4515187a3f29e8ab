package checks

import (
	"context"
	"time"

	"github.com/otslabs/tsgallery/internal/monitoring"
)

const defaultImageStoreTimeout = 2 * time.Second

// ImagePinger is the minimal surface required to probe the image store.
type ImagePinger interface {
	Ping(ctx context.Context) error
}

// ImageStore returns a readiness probe for the configured image backend.
// The local backend stats its root directory; the S3 backend heads the
// bucket.
func ImageStore(blobs ImagePinger, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("images", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if blobs == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "image store not configured",
				Duration: time.Since(start),
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultImageStoreTimeout))
		defer cancel()

		if err := blobs.Ping(probeCtx); err != nil {
			return monitoring.ResultFromError("images", err, time.Since(start))
		}

		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Duration: time.Since(start),
		}
	})
}
