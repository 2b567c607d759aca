package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"breakout_bot/internal/models"
	"breakout_bot/pkg/logger"
	"breakout_bot/pkg/tracing"

	"golang.org/x/sync/errgroup"
)

type positionCloser interface {
	ListOpen(ctx context.Context) ([]*models.Position, error)
	Close(ctx context.Context, id string, exitPrice float64, reason models.ExitReason) (*models.Position, error)
}

type MonitorConfig struct {
	Workers     int
	CallTimeout time.Duration
}

type CheckResult struct {
	Positions int
	Closed    int
	Failed    int
}

// Monitor compares open positions with the mark price and exits on SL/TP.
type Monitor struct {
	cfg       MonitorConfig
	positions positionCloser
	prices    PriceSource
}

func NewMonitor(cfg MonitorConfig, positions positionCloser, prices PriceSource) *Monitor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Monitor{cfg: cfg, positions: positions, prices: prices}
}

// Evaluate reports the exit triggered by price. Stop-loss wins when both trigger.
func Evaluate(p *models.Position, price float64) (models.ExitReason, bool) {
	var hitSL, hitTP bool
	switch p.Side {
	case models.SideBuy:
		hitSL = price <= p.StopLoss
		hitTP = price >= p.TakeProfit
	case models.SideSell:
		hitSL = price >= p.StopLoss
		hitTP = price <= p.TakeProfit
	}
	switch {
	case hitSL:
		return models.ExitStopLoss, true
	case hitTP:
		return models.ExitTakeProfit, true
	default:
		return "", false
	}
}

// Check runs one pass. Symbols are evaluated independently; a failing symbol is
// logged and retried on the next pass.
func (m *Monitor) Check(ctx context.Context) (res CheckResult, err error) {
	span, ctx := tracing.StartSpan(ctx, "positions.monitor")
	defer func() { tracing.Finish(span, err) }()

	open, err := m.positions.ListOpen(ctx)
	if err != nil {
		return res, fmt.Errorf("Monitor.Check: list open: %w", err)
	}
	res.Positions = len(open)
	if len(open) == 0 {
		return res, nil
	}

	bySymbol := make(map[string][]*models.Position)
	for _, p := range open {
		bySymbol[p.Symbol] = append(bySymbol[p.Symbol], p)
	}

	var closed, failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(m.cfg.Workers)
	for symbol, ps := range bySymbol {
		symbol, ps := symbol, ps
		g.Go(func() error {
			n, fails := m.checkSymbol(ctx, symbol, ps)
			closed.Add(int32(n))
			failed.Add(int32(fails))
			return nil
		})
	}
	_ = g.Wait()

	res.Closed = int(closed.Load())
	res.Failed = int(failed.Load())
	return res, nil
}

func (m *Monitor) checkSymbol(ctx context.Context, symbol string, ps []*models.Position) (closed, failed int) {
	callCtx, cancel := withTimeout(ctx, m.cfg.CallTimeout)
	price, err := m.prices.GetMarkPrice(callCtx, symbol)
	cancel()
	if err != nil {
		logger.Warn("[MONITOR] %s mark price: %v", symbol, err)
		return 0, len(ps)
	}

	for _, p := range ps {
		reason, hit := Evaluate(p, price)
		if !hit {
			continue
		}
		logger.Info("[MONITOR] %s %s %s hit at %.6f (sl=%.6f tp=%.6f)", p.ID, p.Symbol, reason, price, p.StopLoss, p.TakeProfit)
		if _, err := m.positions.Close(ctx, p.ID, price, reason); err != nil {
			logger.Error("[MONITOR] close %s: %v", p.ID, err)
			failed++
			continue
		}
		closed++
	}
	return closed, failed
}
