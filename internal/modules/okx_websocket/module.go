package okx_websocket

import (
	"context"

	"breakout_bot/internal/helper"
	"breakout_bot/internal/modules/config"
	health "breakout_bot/internal/modules/health/service"
	"breakout_bot/internal/modules/okx_websocket/service"
	prices "breakout_bot/internal/modules/price_cache/service"

	"go.uber.org/fx"
)

func NewStream(cfg *config.Config, cache prices.Cache, state *health.State) *service.Stream {
	return service.NewStream(cfg.OKX.WSURL, helper.Upper(cfg.Strategy.Symbols), cache, state)
}

// Module streams mark prices into the price cache for the app lifetime.
func Module() fx.Option {
	return fx.Module("okx_websocket",
		fx.Provide(NewStream),
		fx.Invoke(func(lc fx.Lifecycle, s *service.Stream) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					s.Start(ctx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					s.Wait()
					return nil
				},
			})
		}),
	)
}
