package idempotency

import (
	"context"
	"time"
)

// RunSweeper deletes expired keys every interval until ctx is cancelled.
func RunSweeper(ctx context.Context, store Store, interval time.Duration, batch int, logger Logger) {
	if store == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := store.Sweep(ctx, now, batch)
			if logger == nil {
				continue
			}
			switch {
			case err != nil:
				logger(ctx, "idempotency.sweep.failed", map[string]any{"error": err.Error()})
			case removed > 0:
				logger(ctx, "idempotency.sweep.completed", map[string]any{"removed": removed})
			}
		}
	}
}
