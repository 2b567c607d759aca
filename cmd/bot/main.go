package main

import (
	"context"
	"log"

	"breakout_bot/internal/modules/config"
	"breakout_bot/internal/modules/health"
	"breakout_bot/internal/modules/observability"
	"breakout_bot/internal/modules/okx_client"
	"breakout_bot/internal/modules/okx_websocket"
	"breakout_bot/internal/modules/positions"
	"breakout_bot/internal/modules/postgres"
	"breakout_bot/internal/modules/price_cache"
	"breakout_bot/internal/modules/redis"
	"breakout_bot/internal/modules/strategy"
	telegram "breakout_bot/internal/modules/telegram_bot"
	"breakout_bot/internal/notify"
	"breakout_bot/internal/runner"

	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		fx.NopLogger,
		config.Module(),
		observability.Module(),
		health.Module(),
		postgres.Module(),
		redis.Module(),
		okx_client.NewModule(),
		price_cache.Module(),
		okx_websocket.Module(),
		telegram.Module(),
		notify.Module(),
		positions.Module(),
		strategy.Module(),
		runner.Module(),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}
