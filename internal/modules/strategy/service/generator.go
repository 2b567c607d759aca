package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"breakout_bot/internal/models"
	"breakout_bot/pkg/logger"
)

// PositionChecker answers whether a symbol already carries exposure.
type PositionChecker interface {
	HasOpenPosition(ctx context.Context, symbol string) (bool, error)
}

type Config struct {
	EMAPeriod         int
	SwingWindow       int
	LinePoints        int
	StaleAfter        int
	PullbackEnabled   bool
	PullbackTolerance float64 // fraction, 0.003 = 0.3%
	Levels            LevelsConfig
}

type lineLatch struct {
	line         models.Trendline
	broken       bool
	pullbackOpen bool
}

type symbolState struct {
	mu        sync.Mutex
	next      int64
	lastTime  time.Time
	prevClose float64
	hasPrev   bool

	res lineLatch
	sup lineLatch
}

// Generator turns a per-symbol candle stream into breakout signals.
type Generator struct {
	cfg     Config
	trend   *TrendFilter
	swings  *SwingDetector
	checker PositionChecker

	mu      sync.Mutex
	symbols map[string]*symbolState
}

func NewGenerator(cfg Config, checker PositionChecker) *Generator {
	if cfg.LinePoints < 2 {
		cfg.LinePoints = 2
	}
	return &Generator{
		cfg:     cfg,
		trend:   NewTrendFilter(cfg.EMAPeriod),
		swings:  NewSwingDetector(cfg.SwingWindow, cfg.LinePoints),
		checker: checker,
		symbols: make(map[string]*symbolState),
	}
}

func (g *Generator) Trend() *TrendFilter { return g.trend }

func (g *Generator) state(symbol string) *symbolState {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.symbols[symbol]
	if !ok {
		st = &symbolState{}
		g.symbols[symbol] = st
	}
	return st
}

// LastTime is the timestamp of the newest accepted candle for symbol.
func (g *Generator) LastTime(symbol string) time.Time {
	st := g.state(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastTime
}

// Ingest advances the symbol state with c and returns the breakout candidate, if any.
// Malformed or out-of-order candles are rejected without touching state.
func (g *Generator) Ingest(c models.Candle) (*models.Signal, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	st := g.state(c.Symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.hasPrev && !c.Time.After(st.lastTime) {
		return nil, fmt.Errorf("%w: %s non-increasing time %s <= %s", models.ErrInvalidCandle,
			c.Symbol, c.Time.Format(time.RFC3339), st.lastTime.Format(time.RFC3339))
	}

	idx := st.next
	st.next++

	g.trend.Update(c.Symbol, c)
	g.swings.Update(c.Symbol, idx, c)

	var sig *models.Signal
	if st.hasPrev {
		trend := g.trend.TrendOf(c.Symbol, c.Close)
		switch trend {
		case models.TrendBullish:
			sig = g.evaluate(st, &st.res, models.RoleResistance, idx, c)
		case models.TrendBearish:
			sig = g.evaluate(st, &st.sup, models.RoleSupport, idx, c)
		}
	}

	st.prevClose = c.Close
	st.lastTime = c.Time
	st.hasPrev = true
	return sig, nil
}

// OnCandle is Ingest plus suppression for symbols that already hold a position.
func (g *Generator) OnCandle(ctx context.Context, c models.Candle) (*models.Signal, error) {
	sig, err := g.Ingest(c)
	if err != nil || sig == nil {
		return nil, err
	}
	if g.checker == nil {
		return sig, nil
	}

	open, err := g.checker.HasOpenPosition(ctx, c.Symbol)
	if err != nil {
		logger.Warn("[STRATEGY] %s %s suppressed, exposure unknown: %v", sig.Symbol, sig.Side, err)
		return nil, nil
	}
	if open {
		logger.Info("[STRATEGY] %s %s suppressed, position already open", sig.Symbol, sig.Side)
		return nil, nil
	}
	return sig, nil
}

func (g *Generator) freshLine(symbol string, role models.LineRole, idx int64) (models.Trendline, bool) {
	kind := models.SwingHigh
	if role == models.RoleSupport {
		kind = models.SwingLow
	}
	line, ok := FitTrendline(symbol, role, g.swings.Points(symbol, kind))
	if !ok || line.Stale(idx, g.cfg.StaleAfter) {
		return models.Trendline{}, false
	}
	return line, true
}

func (g *Generator) evaluate(st *symbolState, latch *lineLatch, role models.LineRole, idx int64, c models.Candle) *models.Signal {
	side := models.SideBuy
	if role == models.RoleSupport {
		side = models.SideSell
	}

	if line, ok := g.freshLine(c.Symbol, role, idx); ok && !(latch.broken && latch.line.Same(line)) {
		prev, cur := line.ValueAt(idx-1), line.ValueAt(idx)
		crossed := false
		if side == models.SideBuy {
			crossed = st.prevClose <= prev && c.Close > cur
		} else {
			crossed = st.prevClose >= prev && c.Close < cur
		}
		if crossed {
			*latch = lineLatch{line: line, broken: true, pullbackOpen: g.cfg.PullbackEnabled}
			reason := fmt.Sprintf("close %.6f broke %s %.6f", c.Close, role, cur)
			return g.signal(side, c, cur, reason)
		}
	}

	if !latch.pullbackOpen {
		return nil
	}
	if latch.line.Stale(idx, g.cfg.StaleAfter) {
		latch.pullbackOpen = false
		return nil
	}

	lv := latch.line.ValueAt(idx)
	tol := g.cfg.PullbackTolerance
	retest := false
	if side == models.SideBuy {
		retest = c.Low <= lv*(1+tol) && c.Close > lv
	} else {
		retest = c.High >= lv*(1-tol) && c.Close < lv
	}
	if !retest {
		return nil
	}
	latch.pullbackOpen = false
	reason := fmt.Sprintf("pullback to broken %s %.6f", role, lv)
	return g.signal(side, c, lv, reason)
}

func (g *Generator) signal(side models.Side, c models.Candle, lineValue float64, reason string) *models.Signal {
	sl, tp, err := Levels(g.cfg.Levels, side, c.Close, lineValue)
	if err != nil {
		logger.Warn("[STRATEGY] %s levels: %v", c.Symbol, err)
		return nil
	}
	sig := &models.Signal{
		Symbol:      c.Symbol,
		Side:        side,
		EntryPrice:  c.Close,
		StopLoss:    sl,
		TakeProfit:  tp,
		Reason:      reason,
		GeneratedAt: c.Time,
	}
	if err := sig.Validate(); err != nil {
		logger.Warn("[STRATEGY] %v", err)
		return nil
	}
	return sig
}
