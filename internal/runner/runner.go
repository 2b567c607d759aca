package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"breakout_bot/internal/helper"
	"breakout_bot/internal/models"
	positions "breakout_bot/internal/modules/positions/service"
	"breakout_bot/pkg/logger"
	"breakout_bot/pkg/tracing"

	"golang.org/x/sync/errgroup"
)

type CandleSource interface {
	GetCandles(ctx context.Context, symbol, resolution string, start, end time.Time) ([]models.Candle, error)
}

type SignalEngine interface {
	LastTime(symbol string) time.Time
	Ingest(c models.Candle) (*models.Signal, error)
	OnCandle(ctx context.Context, c models.Candle) (*models.Signal, error)
}

type PositionOpener interface {
	Open(ctx context.Context, sig models.Signal) (*models.Position, error)
	ListOpen(ctx context.Context) ([]*models.Position, error)
}

type Checker interface {
	Check(ctx context.Context) (positions.CheckResult, error)
}

type Recoverer interface {
	Run(ctx context.Context) (positions.RecoverySummary, error)
}

type Status interface {
	SetReady(v bool)
	MarkSignalCycle(t time.Time)
	MarkMonitorCycle(t time.Time, open int)
}

type Notifier interface {
	Send(msg string)
}

type Config struct {
	Symbols         []string
	Timeframe       string
	HistoryCandles  int
	SignalInterval  time.Duration
	MonitorInterval time.Duration
	CallTimeout     time.Duration
	Workers         int
}

// Runner drives recovery, the signal cycle and the monitoring loop.
type Runner struct {
	cfg       Config
	candles   CandleSource
	engine    SignalEngine
	positions PositionOpener
	monitor   Checker
	recovery  Recoverer
	status    Status
	notifier  Notifier

	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

func New(cfg Config, candles CandleSource, engine SignalEngine, pos PositionOpener, monitor Checker, recovery Recoverer, status Status, n Notifier) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	cfg.Symbols = helper.Upper(cfg.Symbols)
	return &Runner{
		cfg:       cfg,
		candles:   candles,
		engine:    engine,
		positions: pos,
		monitor:   monitor,
		recovery:  recovery,
		status:    status,
		notifier:  n,
		now:       time.Now,
	}
}

// Start returns immediately; recovery and both loops run in the background.
func (r *Runner) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if !r.runRecovery(ctx) {
			return
		}
		r.status.SetReady(true)
		r.notifier.Send(fmt.Sprintf("🚀 bot started: %d symbols on %s", len(r.cfg.Symbols), r.cfg.Timeframe))

		r.wg.Add(2)
		go func() {
			defer r.wg.Done()
			r.loop(ctx, r.cfg.SignalInterval, r.SignalCycle)
		}()
		go func() {
			defer r.wg.Done()
			r.loop(ctx, r.cfg.MonitorInterval, r.MonitorCycle)
		}()
	}()
}

// Stop cancels the loops, waits for in-flight cycles and reports what is still open.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("Runner.Stop: %w", ctx.Err())
	}
	r.status.SetReady(false)

	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.CallTimeout)
	defer cancel()
	open, err := r.positions.ListOpen(lctx)
	if err != nil {
		logger.Error("[RUNNER] shutdown: list open positions: %v", err)
		r.notifier.Send("⏹ bot stopped, open positions unknown")
		return nil
	}
	r.notifier.Send(shutdownSummary(open))
	return nil
}

func shutdownSummary(open []*models.Position) string {
	if len(open) == 0 {
		return "⏹ bot stopped, no open positions"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏹ bot stopped, %d position(s) left open:", len(open))
	for _, p := range open {
		fmt.Fprintf(&b, "\n• %s %s %s qty=%g SL=%g TP=%g", p.ID, p.Symbol, p.Side, p.Quantity, p.StopLoss, p.TakeProfit)
	}
	return b.String()
}

// runRecovery retries until it succeeds or ctx ends.
func (r *Runner) runRecovery(ctx context.Context) bool {
	for attempt := 1; ; attempt++ {
		sum, err := r.recovery.Run(ctx)
		if err == nil {
			logger.Info("[RUNNER] recovery done: %s", sum.String())
			return true
		}
		logger.Error("[RUNNER] recovery attempt %d failed: %v", attempt, err)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(r.cfg.MonitorInterval):
		}
	}
}

func (r *Runner) loop(ctx context.Context, every time.Duration, cycle func(context.Context)) {
	cycle(ctx)

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			cycle(ctx)
		}
	}
}

// SignalCycle processes new closed candles for every symbol.
func (r *Runner) SignalCycle(ctx context.Context) {
	span, ctx := tracing.StartSpan(ctx, "runner.signal_cycle")
	var cycleErr error
	defer func() { tracing.Finish(span, cycleErr) }()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	var mu sync.Mutex
	var failed []string
	for _, sym := range r.cfg.Symbols {
		sym := sym
		g.Go(func() error {
			if err := r.processSymbol(gctx, sym); err != nil {
				logger.Error("[RUNNER] %s: %v", sym, err)
				mu.Lock()
				failed = append(failed, sym)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		cycleErr = fmt.Errorf("signal cycle failed for %s", strings.Join(failed, ","))
	}
	r.status.MarkSignalCycle(r.now())
}

func (r *Runner) processSymbol(ctx context.Context, symbol string) error {
	tf := helper.TimeframeDuration(r.cfg.Timeframe)
	if tf <= 0 {
		return fmt.Errorf("unknown timeframe %q", r.cfg.Timeframe)
	}

	now := r.now()
	last := r.engine.LastTime(symbol)
	start := now.Add(-tf * time.Duration(r.cfg.HistoryCandles+1))
	if !last.IsZero() {
		start = last.Add(tf)
	}
	if start.After(now) {
		return nil
	}

	fctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	candles, err := r.candles.GetCandles(fctx, symbol, r.cfg.Timeframe, start, now)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}

	fresh := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if !last.IsZero() && !c.Time.After(last) {
			continue
		}
		// still forming
		if c.Time.Add(tf).After(now) {
			continue
		}
		if c.Symbol == "" {
			c.Symbol = symbol
		}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return nil
	}

	// only the newest candle may open a position
	for _, c := range fresh[:len(fresh)-1] {
		if _, err := r.engine.Ingest(c); err != nil {
			logger.Warn("[RUNNER] %s skip candle %s: %v", symbol, c.Time.Format(time.RFC3339), err)
		}
	}

	newest := fresh[len(fresh)-1]
	sig, err := r.engine.OnCandle(ctx, newest)
	if err != nil {
		logger.Warn("[RUNNER] %s skip candle %s: %v", symbol, newest.Time.Format(time.RFC3339), err)
		return nil
	}
	if sig == nil {
		return nil
	}

	logger.Info("[RUNNER] signal %s %s entry=%.6f SL=%.6f TP=%.6f (%s)",
		sig.Symbol, sig.Side, sig.EntryPrice, sig.StopLoss, sig.TakeProfit, sig.Reason)
	pos, err := r.positions.Open(ctx, *sig)
	switch {
	case err == nil:
		logger.Info("[RUNNER] opened %s %s qty=%g", pos.ID, pos.Symbol, pos.Quantity)
	case errors.Is(err, models.ErrPositionExists):
		logger.Info("[RUNNER] %s: %v", symbol, err)
	case errors.Is(err, models.ErrInsufficientBalance), errors.Is(err, models.ErrOrderRejected), errors.Is(err, models.ErrInvalidSignal):
		logger.Warn("[RUNNER] %s signal dropped: %v", symbol, err)
	default:
		return fmt.Errorf("open: %w", err)
	}
	return nil
}

// MonitorCycle runs one SL/TP check over all open positions.
func (r *Runner) MonitorCycle(ctx context.Context) {
	res, err := r.monitor.Check(ctx)
	if err != nil {
		logger.Error("[RUNNER] monitor: %v", err)
		return
	}
	if res.Closed > 0 || res.Failed > 0 {
		logger.Info("[RUNNER] monitor: positions=%d closed=%d failed=%d", res.Positions, res.Closed, res.Failed)
	}
	r.status.MarkMonitorCycle(r.now(), res.Positions-res.Closed)
}
