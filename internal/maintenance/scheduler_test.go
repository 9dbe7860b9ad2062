package maintenance

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/convobridge/convobridge/internal/router"
)

type stubJob struct {
	name     string
	schedule string
}

func (j *stubJob) Name() string              { return j.name }
func (j *stubJob) Schedule() string          { return j.schedule }
func (j *stubJob) Run(context.Context) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_DuplicateJobName(t *testing.T) {
	t.Parallel()
	s := NewScheduler(discardLogger())

	if err := s.RegisterJob(&stubJob{name: "a", schedule: "* * * * *"}); err != nil {
		t.Fatalf("first RegisterJob: %v", err)
	}
	if err := s.RegisterJob(&stubJob{name: "a", schedule: "* * * * *"}); err == nil {
		t.Error("duplicate job name accepted")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	t.Parallel()
	s := NewScheduler(discardLogger())
	_ = s.RegisterJob(&stubJob{name: "bad", schedule: "not a cron expr"})

	if err := s.Start(); err == nil {
		t.Error("invalid schedule accepted")
		_ = s.Stop(context.Background())
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()
	s := NewScheduler(discardLogger())
	_ = s.RegisterJob(&stubJob{name: "ok", schedule: "* * * * *"})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestRouteCleanupJob_PrunesStaleEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	routes := router.NewMemoryRouteStore()

	_ = routes.SetChannelDestination(ctx, "discord-main", "chan-1")
	_ = routes.SetConversationRoute(ctx, "conv-1", router.Route{DestinationID: "chan-1"})

	job := &RouteCleanupJob{
		Routes: routes,
		TTL:    time.Hour,
		Logger: discardLogger(),
		now: func() time.Time {
			// Pretend the job runs two hours from now, past the TTL.
			return time.Now().Add(2 * time.Hour)
		},
	}
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, ok, _ := routes.ChannelDestination(ctx, "discord-main"); ok {
		t.Error("destination survived cleanup")
	}
	if _, ok, _ := routes.ConversationRoute(ctx, "conv-1"); ok {
		t.Error("route survived cleanup")
	}
}

type countingPruner struct {
	cutoff  time.Time
	removed int
}

func (p *countingPruner) Prune(cutoff time.Time) int {
	p.cutoff = cutoff
	return p.removed
}

func TestDedupeCleanupJob_PrunesWithTTLCutoff(t *testing.T) {
	t.Parallel()
	pruner := &countingPruner{removed: 3}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	job := &DedupeCleanupJob{
		Cache:  pruner,
		TTL:    time.Hour,
		Logger: discardLogger(),
		now:    func() time.Time { return base },
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if want := base.Add(-time.Hour); !pruner.cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", pruner.cutoff, want)
	}
}

func TestDedupeCleanupJob_Defaults(t *testing.T) {
	t.Parallel()
	job := &DedupeCleanupJob{}
	if job.Name() != "dedupe_cleanup" {
		t.Errorf("Name = %q", job.Name())
	}
	if job.Schedule() != "30 * * * *" {
		t.Errorf("Schedule = %q", job.Schedule())
	}
}

func TestRouteCleanupJob_Defaults(t *testing.T) {
	t.Parallel()
	job := &RouteCleanupJob{}
	if job.Name() != "route_cleanup" {
		t.Errorf("Name = %q", job.Name())
	}
	if job.Schedule() != "0 * * * *" {
		t.Errorf("Schedule = %q", job.Schedule())
	}
}
