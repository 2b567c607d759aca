package models

import (
	"fmt"
	"math"
	"time"
)

// Candle is one closed OHLCV bar.
type Candle struct {
	Symbol string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

func (c Candle) Validate() error {
	if c.Time.IsZero() {
		return fmt.Errorf("%w: %s zero time", ErrInvalidCandle, c.Symbol)
	}
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s bad price %v at %s", ErrInvalidCandle, c.Symbol, v, c.Time.Format(time.RFC3339))
		}
	}
	if c.Low > math.Min(c.Open, c.Close) || c.High < math.Max(c.Open, c.Close) {
		return fmt.Errorf("%w: %s inconsistent range at %s", ErrInvalidCandle, c.Symbol, c.Time.Format(time.RFC3339))
	}
	if c.Volume < 0 {
		return fmt.Errorf("%w: %s negative volume", ErrInvalidCandle, c.Symbol)
	}
	return nil
}
