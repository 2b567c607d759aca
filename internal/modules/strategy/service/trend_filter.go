package service

import (
	"sync"

	"breakout_bot/internal/models"
)

// emaState is seeded by the SMA of the first period closes.
type emaState struct {
	period int
	alpha  float64
	seed   float64
	seen   int
	value  float64
}

func newEMA(period int) *emaState {
	if period < 1 {
		period = 1
	}
	return &emaState{
		period: period,
		alpha:  2.0 / (float64(period) + 1),
	}
}

func (e *emaState) Update(price float64) {
	e.seen++
	switch {
	case e.seen < e.period:
		e.seed += price
	case e.seen == e.period:
		e.seed += price
		e.value = e.seed / float64(e.period)
	default:
		e.value = (price-e.value)*e.alpha + e.value
	}
}

func (e *emaState) Ready() bool    { return e.seen >= e.period }
func (e *emaState) Value() float64 { return e.value }

func (e *emaState) snapshot() models.TrendState {
	return models.TrendState{EMA: e.value, HasEMA: e.Ready(), Seen: e.seen}
}

// TrendFilter keeps one EMA per symbol.
type TrendFilter struct {
	period int

	mu     sync.Mutex
	states map[string]*emaState
}

func NewTrendFilter(period int) *TrendFilter {
	return &TrendFilter{
		period: period,
		states: make(map[string]*emaState),
	}
}

func (f *TrendFilter) Update(symbol string, c models.Candle) models.TrendState {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.states[symbol]
	if !ok {
		st = newEMA(f.period)
		f.states[symbol] = st
	}
	st.Update(c.Close)
	return st.snapshot()
}

func (f *TrendFilter) State(symbol string) models.TrendState {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.states[symbol]
	if !ok {
		return models.TrendState{}
	}
	return st.snapshot()
}

func (f *TrendFilter) TrendOf(symbol string, price float64) models.Trend {
	st := f.State(symbol)
	if !st.HasEMA {
		return models.TrendNeutral
	}
	switch {
	case price > st.EMA:
		return models.TrendBullish
	case price < st.EMA:
		return models.TrendBearish
	default:
		return models.TrendNeutral
	}
}
