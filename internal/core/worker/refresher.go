// Package worker holds the background refresher that keeps the cache in
// step with newly published rounds.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/lottopipe/lottopipe/internal/core/domain"
)

// Config holds the refresher settings.
type Config struct {
	Interval time.Duration `yaml:"interval"`
	Enabled  bool          `yaml:"enabled"`
}

// Reader is the facade surface the refresher drives.
type Reader interface {
	Latest(ctx context.Context) (domain.DrawResult, error)
	InvalidateNewRound(ctx context.Context) error
}

// Refresher periodically checks the source for a new round. When one is
// confirmed it clears the latest key and the derived namespaces so the
// next read of each shape recomputes from a fresh validated fetch.
type Refresher struct {
	cfg       Config
	reader    Reader
	lastRound int
}

// NewRefresher creates the refresher worker.
func NewRefresher(cfg Config, reader Reader) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	return &Refresher{cfg: cfg, reader: reader}
}

// Start runs the refresh loop until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	if !r.cfg.Enabled {
		return
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.check(ctx)
		}
	}
}

func (r *Refresher) check(ctx context.Context) {
	draw, err := r.reader.Latest(ctx)
	if err != nil {
		slog.Warn("Refresher could not resolve latest round", "error", err)
		return
	}

	if r.lastRound != 0 && draw.Round > r.lastRound {
		slog.Info("New round confirmed, invalidating derived caches",
			"previous", r.lastRound, "round", draw.Round)
		if err := r.reader.InvalidateNewRound(ctx); err != nil {
			slog.Warn("Failed to invalidate derived caches", "error", err)
		}
	}
	r.lastRound = draw.Round
}
