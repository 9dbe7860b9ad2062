package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/convobridge/convobridge/internal/router"
)

// RouteCleanupJob prunes routing state (conversation routes and channel
// destinations) that has not been touched within TTL. Stale routes would
// otherwise pin replies to channels nobody is reading anymore.
type RouteCleanupJob struct {
	Routes       router.RouteStore
	TTL          time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 * * * *"

	now func() time.Time
}

var _ Job = (*RouteCleanupJob)(nil)

// Name implements Job.
func (j *RouteCleanupJob) Name() string {
	return "route_cleanup"
}

// Schedule implements Job.
func (j *RouteCleanupJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run implements Job.
func (j *RouteCleanupJob) Run(ctx context.Context) error {
	nowFn := j.now
	if nowFn == nil {
		nowFn = time.Now
	}
	ttl := j.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	pruned, err := j.Routes.Prune(ctx, nowFn().Add(-ttl))
	if err != nil {
		return err
	}
	if pruned > 0 && j.Logger != nil {
		j.Logger.Info("maintenance: pruned stale routes", "count", pruned)
	}
	return nil
}

// CachePruner drops cache entries older than cutoff and reports how many
// went.
type CachePruner interface {
	Prune(cutoff time.Time) int
}

// DedupeCleanupJob evicts aged entries from the inbound dedupe cache. Keys
// older than TTL cannot be redelivered by the platforms anyway, so holding
// them only grows the map.
type DedupeCleanupJob struct {
	Cache        CachePruner
	TTL          time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "30 * * * *"

	now func() time.Time
}

var _ Job = (*DedupeCleanupJob)(nil)

// Name implements Job.
func (j *DedupeCleanupJob) Name() string {
	return "dedupe_cleanup"
}

// Schedule implements Job.
func (j *DedupeCleanupJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "30 * * * *"
}

// Run implements Job.
func (j *DedupeCleanupJob) Run(context.Context) error {
	nowFn := j.now
	if nowFn == nil {
		nowFn = time.Now
	}
	ttl := j.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	if pruned := j.Cache.Prune(nowFn().Add(-ttl)); pruned > 0 && j.Logger != nil {
		j.Logger.Info("maintenance: evicted stale dedupe entries", "count", pruned)
	}
	return nil
}
