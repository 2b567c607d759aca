package models

import (
	"fmt"
	"time"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the side of an order that flattens a position of side s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

type Trend string

const (
	TrendBullish Trend = "BULLISH"
	TrendBearish Trend = "BEARISH"
	TrendNeutral Trend = "NEUTRAL"
)

// TrendState is the per-symbol EMA accumulator snapshot.
type TrendState struct {
	EMA    float64
	HasEMA bool
	Seen   int
}

// Signal is consumed once by the position manager or dropped.
type Signal struct {
	Symbol      string
	Side        Side
	EntryPrice  float64
	StopLoss    float64
	TakeProfit  float64
	Reason      string
	GeneratedAt time.Time
}

func (s Signal) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidSignal)
	}
	if s.EntryPrice <= 0 || s.StopLoss <= 0 || s.TakeProfit <= 0 {
		return fmt.Errorf("%w: %s non-positive levels", ErrInvalidSignal, s.Symbol)
	}
	switch s.Side {
	case SideBuy:
		if !(s.StopLoss < s.EntryPrice && s.EntryPrice < s.TakeProfit) {
			return fmt.Errorf("%w: %s BUY needs sl < entry < tp (sl=%.6f entry=%.6f tp=%.6f)",
				ErrInvalidSignal, s.Symbol, s.StopLoss, s.EntryPrice, s.TakeProfit)
		}
	case SideSell:
		if !(s.StopLoss > s.EntryPrice && s.EntryPrice > s.TakeProfit) {
			return fmt.Errorf("%w: %s SELL needs sl > entry > tp (sl=%.6f entry=%.6f tp=%.6f)",
				ErrInvalidSignal, s.Symbol, s.StopLoss, s.EntryPrice, s.TakeProfit)
		}
	default:
		return fmt.Errorf("%w: %s unknown side %q", ErrInvalidSignal, s.Symbol, s.Side)
	}
	return nil
}
