package okx_client

import (
	"breakout_bot/internal/modules/okx_client/service"

	"go.uber.org/fx"
)

func NewModule() fx.Option {
	return fx.Module(
		"okx_client",
		fx.Provide(service.NewClient),
	)
}
