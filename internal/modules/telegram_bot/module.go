package telegram

import (
	"context"

	"breakout_bot/internal/modules/config"
	health "breakout_bot/internal/modules/health/service"
	positions "breakout_bot/internal/modules/positions/service"
	prices "breakout_bot/internal/modules/price_cache/service"
	"breakout_bot/internal/modules/telegram_bot/service"
	"breakout_bot/internal/notify"
	"breakout_bot/pkg/logger"

	"go.uber.org/fx"
)

func NewCommands(m *positions.Manager, feed *prices.Feed, state *health.State, cfg *config.Config) *service.Commands {
	return service.NewCommands(m, feed, state, cfg.Scheduler.CallTimeout)
}

// NewTelegram returns nil when no token is configured.
func NewTelegram(cfg *config.Config) (*service.Telegram, error) {
	if cfg.Telegram.Token == "" {
		logger.Info("telegram: token not set, bot disabled")
		return nil, nil
	}
	return service.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
}

func AsSender(t *service.Telegram) notify.Sender {
	if t == nil {
		return nil
	}
	return t
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			NewCommands,
			NewTelegram,
			fx.Annotate(AsSender, fx.ResultTags(`group:"senders"`)),
		),
		// commands are attached at start so the sender can be built before the position manager
		fx.Invoke(func(lc fx.Lifecycle, t *service.Telegram, commands *service.Commands) {
			if t == nil {
				return
			}
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					t.Start(ctx, commands)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					t.Stop()
					return nil
				},
			})
		}),
	)
}
