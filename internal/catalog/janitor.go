package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// GarbageCollector removes unreferenced blobs.
type GarbageCollector interface {
	CollectGarbage(ctx context.Context) (int, error)
}

// StartJanitor sweeps orphaned blobs every interval until ctx is done.
func StartJanitor(
	ctx context.Context,
	gc GarbageCollector,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := gc.CollectGarbage(ctx)
				if err != nil {
					log.Error("failed to collect orphaned blobs", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("collected orphaned blobs", zap.Int("removed", removed))
				}
			}
		}
	}()
}
