package postgres

import (
	"context"
	"time"

	"codeberg.org/kcchat/server/internal/logger"
)

// GC periodically prunes banned_hosts rows whose ban has lapsed and
// google_ids rows whose cache entry has expired, following the teacher's
// ticker-driven CleanupService shape.
type GC struct {
	hosts         *BannedHostRepository
	googleIDs     *GoogleIDCache
	checkInterval time.Duration
	now           func() int64
}

func NewGC(hosts *BannedHostRepository, googleIDs *GoogleIDCache, checkInterval time.Duration, now func() int64) *GC {
	return &GC{hosts: hosts, googleIDs: googleIDs, checkInterval: checkInterval, now: now}
}

// Start runs the prune loop until ctx is canceled.
func (g *GC) Start(ctx context.Context) {
	logger.Info("starting banned-host cleanup service", "check_interval", g.checkInterval)

	ticker := time.NewTicker(g.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("banned-host cleanup service stopped")
			return
		case <-ticker.C:
			g.prune(ctx)
		}
	}
}

func (g *GC) prune(ctx context.Context) {
	pruned, err := g.hosts.PruneExpired(ctx, g.now())
	if err != nil {
		logger.ErrorErr(err, "failed to prune expired banned hosts")
	} else if pruned > 0 {
		logger.Info("pruned expired banned hosts", "count", pruned)
	}

	if g.googleIDs == nil {
		return
	}
	prunedIDs, err := g.googleIDs.PruneExpired(ctx, g.now())
	if err != nil {
		logger.ErrorErr(err, "failed to prune expired google id cache entries")
		return
	}
	if prunedIDs > 0 {
		logger.Info("pruned expired google id cache entries", "count", prunedIDs)
	}
}
