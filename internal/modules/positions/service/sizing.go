package service

import (
	"fmt"
	"math"

	"breakout_bot/internal/helper"
	"breakout_bot/internal/models"
)

const (
	SizeFixed = "fixed"
	SizeRisk  = "risk"
)

// Sizer turns a signal into an order quantity.
type Sizer struct {
	Mode       string
	Quantity   float64
	RiskAmount float64 // quote currency lost at the stop
	LotSize    float64
	MinSize    float64
}

func (s Sizer) Size(sig models.Signal) (float64, error) {
	var qty float64
	switch s.Mode {
	case SizeRisk:
		dist := math.Abs(sig.EntryPrice - sig.StopLoss)
		if dist <= 0 {
			return 0, fmt.Errorf("Sizer: zero stop distance for %s", sig.Symbol)
		}
		qty = s.RiskAmount / dist
	default:
		qty = s.Quantity
	}

	qty = helper.RoundDownToTick(qty, s.LotSize)
	if qty <= 0 || qty < s.MinSize {
		return 0, fmt.Errorf("Sizer: %s size %g below minimum %g", sig.Symbol, qty, s.MinSize)
	}
	return qty, nil
}
