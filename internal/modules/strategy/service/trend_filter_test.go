package service

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"breakout_bot/internal/models"
)

func closeCandle(symbol string, i int, close float64) models.Candle {
	return models.Candle{
		Symbol: symbol,
		Time:   time.Unix(0, 0).Add(time.Duration(i) * time.Minute),
		Open:   close, High: close, Low: close, Close: close,
	}
}

func TestTrendFilterWarmup(t *testing.T) {
	f := NewTrendFilter(4)
	for i, v := range []float64{1, 2, 3} {
		st := f.Update("BTC", closeCandle("BTC", i, v))
		if st.HasEMA {
			t.Fatalf("ema ready after %d inputs", i+1)
		}
		if got := f.TrendOf("BTC", 100); got != models.TrendNeutral {
			t.Fatalf("trend before warmup: %s", got)
		}
	}
	st := f.Update("BTC", closeCandle("BTC", 3, 4))
	if !st.HasEMA || st.EMA != 2.5 {
		t.Fatalf("seed ema: got %+v want 2.5", st)
	}

	st = f.Update("BTC", closeCandle("BTC", 4, 5))
	want := (5-2.5)*(2.0/5.0) + 2.5
	if math.Abs(st.EMA-want) > 1e-12 {
		t.Fatalf("ema step: got %v want %v", st.EMA, want)
	}
}

func TestTrendFilterBounded(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	f := NewTrendFilter(10)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < 500; i++ {
		v := 50 + r.Float64()*100
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		st := f.Update("ETH", closeCandle("ETH", i, v))
		if !st.HasEMA {
			continue
		}
		if st.EMA < lo-1e-9 || st.EMA > hi+1e-9 {
			t.Fatalf("ema %v outside [%v, %v] at %d", st.EMA, lo, hi, i)
		}
	}
}

func TestTrendOf(t *testing.T) {
	f := NewTrendFilter(1)
	f.Update("SOL", closeCandle("SOL", 0, 10))
	if got := f.TrendOf("SOL", 11); got != models.TrendBullish {
		t.Fatalf("above ema: %s", got)
	}
	if got := f.TrendOf("SOL", 9); got != models.TrendBearish {
		t.Fatalf("below ema: %s", got)
	}
	if got := f.TrendOf("SOL", 10); got != models.TrendNeutral {
		t.Fatalf("at ema: %s", got)
	}
	if got := f.TrendOf("DOGE", 10); got != models.TrendNeutral {
		t.Fatalf("unknown symbol: %s", got)
	}
}
