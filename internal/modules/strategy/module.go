package strategy

import (
	"breakout_bot/internal/modules/config"
	"breakout_bot/internal/modules/strategy/service"

	"go.uber.org/fx"
)

func NewGeneratorConfig(cfg *config.Config) service.Config {
	s := cfg.Strategy
	return service.Config{
		EMAPeriod:         s.EMAPeriod,
		SwingWindow:       s.SwingWindow,
		LinePoints:        s.LinePoints,
		StaleAfter:        s.StaleAfter,
		PullbackEnabled:   s.PullbackEnabled,
		PullbackTolerance: s.PullbackTolerancePct / 100,
		Levels: service.LevelsConfig{
			StopPct:    s.StopPct / 100,
			RiskReward: s.RiskReward,
			Anchor:     s.StopAnchor,
		},
	}
}

// Module needs a service.PositionChecker from the positions module.
func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			NewGeneratorConfig,
			service.NewGenerator,
		),
	)
}
