package service

import (
	"fmt"
	"math"

	"breakout_bot/internal/models"
)

const (
	AnchorLine  = "line"
	AnchorEntry = "entry"
)

type LevelsConfig struct {
	StopPct    float64 // fraction, 0.01 = 1%
	RiskReward float64
	Anchor     string // line | entry
}

// Levels returns stop-loss and take-profit for an entry at entry off a line valued lineValue.
func Levels(cfg LevelsConfig, side models.Side, entry, lineValue float64) (sl, tp float64, err error) {
	if entry <= 0 {
		return 0, 0, fmt.Errorf("levels: entry <= 0")
	}
	if cfg.StopPct <= 0 || cfg.RiskReward <= 0 {
		return 0, 0, fmt.Errorf("levels: stopPct=%v rr=%v", cfg.StopPct, cfg.RiskReward)
	}

	base := entry
	switch side {
	case models.SideBuy:
		if cfg.Anchor != AnchorEntry && lineValue > 0 {
			base = math.Min(lineValue, entry)
		}
		sl = base * (1 - cfg.StopPct)
	case models.SideSell:
		if cfg.Anchor != AnchorEntry && lineValue > 0 {
			base = math.Max(lineValue, entry)
		}
		sl = base * (1 + cfg.StopPct)
	default:
		return 0, 0, fmt.Errorf("levels: unknown side %q", side)
	}

	risk := math.Abs(entry - sl)
	if risk <= 0 {
		return 0, 0, fmt.Errorf("levels: zero risk")
	}
	if side == models.SideBuy {
		tp = entry + risk*cfg.RiskReward
	} else {
		tp = entry - risk*cfg.RiskReward
	}
	if tp <= 0 {
		return 0, 0, fmt.Errorf("levels: take profit %v <= 0", tp)
	}
	return sl, tp, nil
}
