package conversation

import (
	"context"
	"log/slog"
	"time"
)

// Shortened in tests.
var ttlSweepInterval = 5 * time.Minute

// StartTTLWorker runs a background goroutine that periodically evicts
// sessions idle longer than ttl. With ttl <= 0 transcripts grow for the life
// of the process and no worker is started.
func StartTTLWorker(ctx context.Context, store Store, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	interval := ttlSweepInterval
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session TTL worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				evicted, err := store.EvictIdle(ctx, ttl)
				if err != nil {
					slog.Error("Session TTL worker sweep failed", "error", err)
					continue
				}
				if evicted > 0 {
					slog.Info("Session TTL worker evicted idle sessions", "count", evicted)
				}
			case <-ctx.Done():
				slog.Info("Session TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
