package observability

import (
	"context"

	"breakout_bot/internal/modules/config"
	"breakout_bot/pkg/logger"
	"breakout_bot/pkg/tracing"

	"go.uber.org/fx"
)

// Setup replaces the no-op logger and tracer with configured ones.
func Setup(lc fx.Lifecycle, cfg *config.Config) error {
	logger.SetServiceName(cfg.Service.Name)
	tracing.SetServiceName(cfg.Service.Name)

	if _, err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		return err
	}

	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			logger.Sync()
			return nil
		},
	})
	logger.Info("starting %s: symbols=%v timeframe=%s storage=%s", cfg.Service.Name, cfg.Strategy.Symbols, cfg.Strategy.Timeframe, cfg.Storage.Driver)
	return nil
}

// Module must be listed first so later constructors log through the configured logger.
func Module() fx.Option {
	return fx.Module("observability",
		fx.Invoke(Setup),
	)
}
