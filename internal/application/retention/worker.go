// Package retention provides the background worker that expires old
// interaction events.
package retention

import (
	"context"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/pkg/config"
)

// Purger deletes events older than a retention window.
type Purger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// Config holds worker settings, sourced from the central config package.
type Config struct {
	SweepInterval time.Duration
	Retention     time.Duration
}

// NewConfig reads the already-initialized values in pkg/config.
func NewConfig() Config {
	return Config{
		SweepInterval: config.RetentionSweepInterval,
		Retention:     time.Duration(config.EventRetentionDays) * 24 * time.Hour,
	}
}

// Worker periodically purges expired events.
type Worker struct {
	purger Purger
	config Config
	logger *logging.ChanneledLogger
}

// NewWorker creates a retention worker.
func NewWorker(purger Purger, cfg Config, logger *logging.ChanneledLogger) *Worker {
	return &Worker{purger: purger, config: cfg, logger: logger}
}

// Start runs a sweep immediately and then on every interval until ctx ends.
// A non-positive interval or retention disables the worker.
func (w *Worker) Start(ctx context.Context) {
	if w.config.SweepInterval <= 0 || w.config.Retention <= 0 {
		w.logger.System().Info("Event retention worker disabled")
		return
	}

	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	w.logger.System().Info("Event retention worker started",
		"interval", w.config.SweepInterval, "retention", w.config.Retention)

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown().Info("Event retention worker stopping")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one purge pass and returns the number of removed events.
func (w *Worker) Sweep(ctx context.Context) int64 {
	start := time.Now()
	removed, err := w.purger.PurgeOlderThan(ctx, w.config.Retention)
	if err != nil {
		w.logger.LogError(logging.ChannelDatabase, "purge_events", err, nil)
		return 0
	}
	if removed > 0 {
		w.logger.Database().Info("Expired events purged", "removed", removed, "duration", time.Since(start))
	} else {
		w.logger.Database().Debug("Event retention sweep found nothing to purge", "duration", time.Since(start))
	}
	return removed
}
