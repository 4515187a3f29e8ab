// Package checks provides readiness probes for the plugin's storage
// dependencies.
package checks

import (
	"context"
	"time"

	"github.com/otslabs/tsgallery/internal/monitoring"
)

const defaultRecordStoreTimeout = 2 * time.Second

// RecordPinger is the minimal surface required to probe the record store.
type RecordPinger interface {
	Ping(ctx context.Context) error
}

// RecordStore returns a readiness probe that pings the configured record
// store. A store built from incomplete credentials fails the ping with the
// configuration error naming the missing variable, which surfaces here as
// the probe detail.
func RecordStore(store RecordPinger, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("records", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDown,
				Details:  "record store not configured",
				Duration: time.Since(start),
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultRecordStoreTimeout))
		defer cancel()

		if err := store.Ping(probeCtx); err != nil {
			return monitoring.ResultFromError("records", err, time.Since(start))
		}

		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Duration: time.Since(start),
		}
	})
}

func chooseTimeout(provided, fallback time.Duration) time.Duration {
	if provided <= 0 {
		return fallback
	}
	return provided
}
