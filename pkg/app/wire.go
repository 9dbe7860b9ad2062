package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/convobridge/convobridge/internal/admin"
	"github.com/convobridge/convobridge/internal/bridge"
	"github.com/convobridge/convobridge/internal/channel"
	"github.com/convobridge/convobridge/internal/config"
	"github.com/convobridge/convobridge/internal/conversation"
	"github.com/convobridge/convobridge/internal/core"
	"github.com/convobridge/convobridge/internal/maintenance"
	"github.com/convobridge/convobridge/internal/router"
	"github.com/convobridge/convobridge/internal/state"
	"github.com/convobridge/convobridge/pkg/message"
)

// inboundTimeout bounds one inbound routing pass, covering store writes and
// route updates but not the agent's eventual reply.
const inboundTimeout = 30 * time.Second

// Stores bundles the storage collaborators selected by the state backend.
type Stores struct {
	Backend       string
	Channels      *channel.Registry
	Conversations conversation.Store
	Dedupe        *bridge.DedupingStore
	DedupeCache   *bridge.MemoryDedupeCache
	Routes        router.RouteStore
	UserLinks     bridge.UserLinkStore

	db *state.DB
}

// Close releases any durable backend resources.
func (s *Stores) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// buildStores constructs the conversation, route, and user-link stores for
// the configured backend, wrapping the conversation store with redelivery
// dedupe in both cases.
func buildStores(cfg *config.Config, dataDir string) (*Stores, error) {
	stores := &Stores{
		Backend:  cfg.State.Backend,
		Channels: channel.NewRegistry(),
	}
	if stores.Backend == "" {
		stores.Backend = "memory"
	}

	var inner conversation.Store
	switch stores.Backend {
	case "sqlite":
		db, err := state.Open(cfg.State.Path)
		if err != nil {
			return nil, err
		}
		stores.db = db
		inner = db.Conversations()
		stores.Routes = db.Routes()
		stores.UserLinks = db.UserLinks()
	default:
		inner = conversation.NewMemStore()
		stores.Routes = router.NewMemoryRouteStore()
		stores.UserLinks = bridge.NewMemoryUserLinkStore()
	}

	stores.DedupeCache = bridge.NewMemoryDedupeCache()
	stores.Dedupe = bridge.NewDedupingStore(inner, stores.DedupeCache)
	stores.Conversations = stores.Dedupe
	return stores, nil
}

// wireBridge builds the router and bridge on top of the stores, subscribes
// every registered channel's inbound stream to the bridge, and appends the
// admin server and maintenance scheduler to the app lifecycle. Must be called
// after LoadModules and before Start.
func wireBridge(
	app *core.App,
	appCtx *core.AppContext,
	cfg *config.Config,
	stores *Stores,
	metrics *admin.Metrics,
	logger *slog.Logger,
) error {
	r := router.New(router.Options{
		Store:     stores.Conversations,
		Registry:  stores.Channels,
		Routes:    stores.Routes,
		Logger:    logger,
		Broadcast: cfg.Routing.Broadcast,
		OnSend: func(platform message.Platform) {
			metrics.OutboundSends.WithLabelValues(string(platform)).Inc()
		},
	})
	b := bridge.New(r, stores.UserLinks, logger)
	appCtx.RegisterService("bridge", b)

	stores.Dedupe.OnHit = metrics.DedupeHits.Inc

	for _, ch := range stores.Channels.List() {
		ch := ch
		id := ch.Config().ID
		ch.OnMessage(func(msg message.ChannelMessage) {
			metrics.InboundMessages.WithLabelValues(string(msg.Platform)).Inc()

			ctx, cancel := context.WithTimeout(context.Background(), inboundTimeout)
			defer cancel()
			if _, err := b.RouteInbound(ctx, msg, ch); err != nil {
				metrics.RoutingErrors.Inc()
				logger.Error("inbound routing failed",
					"channel", id,
					"error", err)
			}
		})
		logger.Info("bridge: subscribed channel", "channel", id)
	}
	if stores.Channels.Len() == 0 {
		logger.Warn("bridge: no channels registered, nothing to route")
	}

	if cfg.Admin.Enabled {
		srv := admin.NewServer(cfg.Admin.Addr, stores.Channels, metrics, logger)
		app.AppendModule("admin", &adminModule{srv: srv})
	}

	sched := maintenance.NewScheduler(logger)
	if err := sched.RegisterJob(&maintenance.RouteCleanupJob{
		Routes:       stores.Routes,
		TTL:          cfg.Maintenance.RouteTTLDuration(),
		Logger:       logger,
		ScheduleExpr: cfg.Maintenance.Schedule,
	}); err != nil {
		return err
	}
	if err := sched.RegisterJob(&maintenance.DedupeCleanupJob{
		Cache:  stores.DedupeCache,
		TTL:    cfg.Maintenance.RouteTTLDuration(),
		Logger: logger,
	}); err != nil {
		return err
	}
	app.AppendModule("maintenance", &schedulerModule{sched: sched})

	return nil
}

// adminModule adapts the admin HTTP server to the core lifecycle.
type adminModule struct {
	srv *admin.Server
}

func (m *adminModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "admin"}
}

func (m *adminModule) Start() error {
	m.srv.Start()
	return nil
}

func (m *adminModule) Stop(ctx context.Context) error {
	return m.srv.Stop(ctx)
}

// schedulerModule adapts the maintenance scheduler to the core lifecycle.
type schedulerModule struct {
	sched *maintenance.Scheduler
}

func (m *schedulerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "maintenance"}
}

func (m *schedulerModule) Start() error {
	return m.sched.Start()
}

func (m *schedulerModule) Stop(ctx context.Context) error {
	return m.sched.Stop(ctx)
}
