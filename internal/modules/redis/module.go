package redis

import (
	"context"

	"breakout_bot/internal/modules/config"
	"breakout_bot/internal/modules/redis/service"
	"breakout_bot/pkg/logger"

	"go.uber.org/fx"
)

// NewClient returns nil when no redis address is configured.
func NewClient(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (*service.Client, error) {
	if cfg.Redis.Addr == "" {
		logger.Info("redis: disabled, using in-process price cache and no lease")
		return nil, nil
	}

	c, err := service.New(ctx, service.ClientConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return c.Close() },
	})
	return c, nil
}

func NewLease(c *service.Client, cfg *config.Config) *service.Lease {
	if c == nil {
		return nil
	}
	return service.NewLease(c, cfg.Redis.LeaseKey, cfg.Redis.LeaseTTL)
}

// Module takes the account lease before trading starts and drops it on stop.
func Module() fx.Option {
	return fx.Module("redis",
		fx.Provide(NewClient, NewLease),
		fx.Invoke(func(lc fx.Lifecycle, sd fx.Shutdowner, lease *service.Lease) {
			if lease == nil {
				return
			}
			stop := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := lease.Acquire(ctx); err != nil {
						return err
					}
					logger.Info("redis: lease acquired token=%s", lease.Token())
					go watchLease(lease, sd, stop)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					close(stop)
					return lease.Release(ctx)
				},
			})
		}),
	)
}

// watchLease stops the app when another instance takes over the account.
func watchLease(lease *service.Lease, sd fx.Shutdowner, stop <-chan struct{}) {
	select {
	case <-stop:
	case <-lease.Lost():
		logger.Error("redis: lease lost, shutting down to avoid a second trader")
		if err := sd.Shutdown(fx.ExitCode(1)); err != nil {
			logger.Error("redis: shutdown: %v", err)
		}
	}
}
