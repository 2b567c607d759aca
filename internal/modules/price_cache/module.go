package price_cache

import (
	"breakout_bot/internal/modules/config"
	okx "breakout_bot/internal/modules/okx_client/service"
	"breakout_bot/internal/modules/price_cache/service"
	redissvc "breakout_bot/internal/modules/redis/service"

	"go.uber.org/fx"
)

func NewCache(rc *redissvc.Client) service.Cache {
	if rc == nil {
		return service.NewMemoryCache()
	}
	return service.NewRedisCache(rc.Underlying())
}

func NewFeed(cache service.Cache, rest *okx.Client, cfg *config.Config) *service.Feed {
	return service.NewFeed(cache, rest, cfg.Scheduler.PriceMaxAge)
}

func Module() fx.Option {
	return fx.Module("price_cache",
		fx.Provide(NewCache, NewFeed),
	)
}
