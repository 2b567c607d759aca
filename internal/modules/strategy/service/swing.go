package service

import (
	"sync"

	"breakout_bot/internal/models"
)

type indexedCandle struct {
	idx int64
	c   models.Candle
}

type swingState struct {
	buf   []indexedCandle // last 2*window+1 candles
	highs []models.SwingPoint
	lows  []models.SwingPoint
}

// SwingDetector confirms extrema once window candles on both sides are known.
type SwingDetector struct {
	window int
	keep   int

	mu     sync.Mutex
	states map[string]*swingState
}

func NewSwingDetector(window, keep int) *SwingDetector {
	if window < 1 {
		window = 1
	}
	if keep < 1 {
		keep = 1
	}
	return &SwingDetector{
		window: window,
		keep:   keep,
		states: make(map[string]*swingState),
	}
}

// Update appends candle idx and returns points confirmed by it (at index idx-window).
func (d *SwingDetector) Update(symbol string, idx int64, c models.Candle) []models.SwingPoint {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.states[symbol]
	if !ok {
		st = &swingState{}
		d.states[symbol] = st
	}

	size := 2*d.window + 1
	st.buf = append(st.buf, indexedCandle{idx: idx, c: c})
	if len(st.buf) > size {
		st.buf = st.buf[len(st.buf)-size:]
	}
	if len(st.buf) < size {
		return nil
	}

	center := st.buf[d.window]
	isHigh, isLow := true, true
	for i, ic := range st.buf {
		if i == d.window {
			continue
		}
		if ic.c.High >= center.c.High {
			isHigh = false
		}
		if ic.c.Low <= center.c.Low {
			isLow = false
		}
	}

	var out []models.SwingPoint
	if isHigh {
		p := models.SwingPoint{Symbol: symbol, Kind: models.SwingHigh, Price: center.c.High, Index: center.idx, Time: center.c.Time}
		st.highs = appendKeep(st.highs, p, d.keep)
		out = append(out, p)
	}
	if isLow {
		p := models.SwingPoint{Symbol: symbol, Kind: models.SwingLow, Price: center.c.Low, Index: center.idx, Time: center.c.Time}
		st.lows = appendKeep(st.lows, p, d.keep)
		out = append(out, p)
	}
	return out
}

// Points returns the retained points of kind, oldest first.
func (d *SwingDetector) Points(symbol string, kind models.SwingKind) []models.SwingPoint {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.states[symbol]
	if !ok {
		return nil
	}
	src := st.highs
	if kind == models.SwingLow {
		src = st.lows
	}
	out := make([]models.SwingPoint, len(src))
	copy(out, src)
	return out
}

func appendKeep(pts []models.SwingPoint, p models.SwingPoint, keep int) []models.SwingPoint {
	pts = append(pts, p)
	if len(pts) > keep {
		pts = pts[len(pts)-keep:]
	}
	return pts
}
