package runner

import (
	"context"

	"breakout_bot/internal/modules/config"
	health "breakout_bot/internal/modules/health/service"
	okx "breakout_bot/internal/modules/okx_client/service"
	positions "breakout_bot/internal/modules/positions/service"
	strategy "breakout_bot/internal/modules/strategy/service"
	"breakout_bot/internal/notify"

	"go.uber.org/fx"
)

func NewConfig(cfg *config.Config) Config {
	return Config{
		Symbols:         cfg.Strategy.Symbols,
		Timeframe:       cfg.Strategy.Timeframe,
		HistoryCandles:  cfg.Strategy.HistoryCandles,
		SignalInterval:  cfg.Scheduler.SignalInterval,
		MonitorInterval: cfg.Scheduler.MonitorInterval,
		CallTimeout:     cfg.Scheduler.CallTimeout,
		Workers:         cfg.Scheduler.Workers,
	}
}

func NewRunner(
	cfg Config,
	client *okx.Client,
	gen *strategy.Generator,
	m *positions.Manager,
	mon *positions.Monitor,
	rec *positions.Reconciler,
	state *health.State,
	d *notify.Dispatcher,
) *Runner {
	return New(cfg, client, gen, m, mon, rec, state, d)
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(NewConfig, NewRunner),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					r.Start(context.Background())
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return r.Stop(ctx)
				},
			})
		}),
	)
}
