package server

import (
	"context"
	"log"
	"time"
)

// SweeperConfig holds configuration for the expired-session sweeper.
type SweeperConfig struct {
	Interval time.Duration
	Store    SessionStore
}

// StartSessionSweeper runs a background loop that deletes expired session
// rows. Correctness does not depend on it: loads check expiry themselves.
// The sweeper only keeps the table from growing without bound.
func StartSessionSweeper(ctx context.Context, cfg SweeperConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	log.Printf("service=sessions msg=%q interval=%s", "sweeper_starting", cfg.Interval)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	sweep(ctx, cfg.Store)

	for {
		select {
		case <-ctx.Done():
			log.Printf("service=sessions msg=%q", "sweeper_shutting_down")
			return
		case <-ticker.C:
			sweep(ctx, cfg.Store)
		}
	}
}

func sweep(ctx context.Context, store SessionStore) {
	n, err := store.DeleteExpired(ctx, time.Now())
	if err != nil {
		log.Printf("service=sessions msg=%q err=%v", "sweep_failed", err)
		return
	}
	if n > 0 {
		log.Printf("service=sessions msg=%q deleted=%d", "sweep_complete", n)
	}
}
