package catalog

import (
	"context"
	"time"

	"github.com/marketfold/shopedge/internal/cache"
	"github.com/marketfold/shopedge/internal/logger"
)

// TrendingJob keeps the trending products cache warm so the first request
// after an expiry does not pay the aggregation query.
type TrendingJob struct {
	svc      *Service
	interval time.Duration
	size     int
}

// NewTrendingJob creates the refresh job from the service configuration.
func NewTrendingJob(svc *Service) *TrendingJob {
	return &TrendingJob{
		svc:      svc,
		interval: svc.cfg.TrendingRefreshInterval,
		size:     svc.cfg.TrendingSize,
	}
}

// Run refreshes the trending cache on a fixed interval until ctx is done.
// Call in its own goroutine.
func (j *TrendingJob) Run(ctx context.Context) {
	log := logger.WithComponent("trending")
	log.InfoContext(ctx, "trending refresh job started", "interval", j.interval, "size", j.size)

	j.refresh(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.InfoContext(ctx, "trending refresh job stopped")
			return
		case <-ticker.C:
			j.refresh(ctx)
		}
	}
}

func (j *TrendingJob) refresh(ctx context.Context) {
	log := logger.WithComponent("trending")

	items, err := j.svc.store.Trending(ctx, j.size)
	if err != nil {
		log.WarnContext(ctx, "trending refresh failed", "error", err)
		return
	}

	cache.WriteThroughJSON(ctx, j.svc.cache, cache.TrendingKey(j.size), items, j.svc.cfg.TrendingTTL)
	log.DebugContext(ctx, "trending cache refreshed", "count", len(items))
}
