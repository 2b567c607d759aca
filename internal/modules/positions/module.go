package positions

import (
	"breakout_bot/internal/modules/config"
	okx "breakout_bot/internal/modules/okx_client/service"
	"breakout_bot/internal/modules/positions/pg"
	"breakout_bot/internal/modules/positions/service"
	prices "breakout_bot/internal/modules/price_cache/service"
	strategy "breakout_bot/internal/modules/strategy/service"
	"breakout_bot/internal/notify"
	"breakout_bot/pkg/db"
	"breakout_bot/pkg/logger"

	"go.uber.org/fx"
)

// NewStore picks postgres when a tx manager is available and memory otherwise.
func NewStore(tm *db.PgTxManager) service.Store {
	if tm == nil {
		logger.Warn("positions: memory store, state will not survive a restart")
		return service.NewMemoryStore()
	}
	return pg.New(tm)
}

func NewSizer(cfg *config.Config) service.Sizer {
	t := cfg.Trading
	return service.Sizer{
		Mode:       t.SizeMode,
		Quantity:   t.Quantity,
		RiskAmount: t.RiskAmount,
		LotSize:    t.LotSize,
		MinSize:    t.MinSize,
	}
}

func NewManager(cfg *config.Config, store service.Store, client *okx.Client, sizer service.Sizer, d *notify.Dispatcher) *service.Manager {
	return service.NewManager(service.ManagerConfig{
		Leverage:    cfg.Trading.Leverage,
		CallTimeout: cfg.Scheduler.CallTimeout,
	}, store, client, sizer, d)
}

func NewMonitor(cfg *config.Config, m *service.Manager, feed *prices.Feed) *service.Monitor {
	return service.NewMonitor(service.MonitorConfig{
		Workers:     cfg.Scheduler.Workers,
		CallTimeout: cfg.Scheduler.CallTimeout,
	}, m, feed)
}

func NewReconciler(cfg *config.Config, store service.Store, client *okx.Client, m *service.Manager, feed *prices.Feed, d *notify.Dispatcher) *service.Reconciler {
	return service.NewReconciler(cfg.Scheduler.RecoveryPolicy, store, client, m, feed, d, cfg.Scheduler.CallTimeout)
}

// AsPositionChecker lets the signal generator suppress entries on open exposure.
func AsPositionChecker(m *service.Manager) strategy.PositionChecker { return m }

func Module() fx.Option {
	return fx.Module("positions",
		fx.Provide(
			NewStore,
			NewSizer,
			NewManager,
			NewMonitor,
			NewReconciler,
			AsPositionChecker,
		),
	)
}
