package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"breakout_bot/internal/models"
	positions "breakout_bot/internal/modules/positions/service"
)

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeCandles struct {
	mu     sync.Mutex
	series map[string][]models.Candle
	starts []time.Time
	err    error
}

func (f *fakeCandles) GetCandles(_ context.Context, symbol, _ string, start, end time.Time) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, start)
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Candle
	for _, c := range f.series[symbol] {
		if !c.Time.Before(start) && !c.Time.After(end) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeEngine struct {
	mu       sync.Mutex
	last     map[string]time.Time
	ingested []time.Time
	onCandle []time.Time
	signal   *models.Signal
}

func (f *fakeEngine) LastTime(symbol string) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last[symbol]
}

func (f *fakeEngine) Ingest(c models.Candle) (*models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested = append(f.ingested, c.Time)
	f.last[c.Symbol] = c.Time
	// historical signals must never reach the manager
	return &models.Signal{Symbol: c.Symbol, Side: models.SideBuy}, nil
}

func (f *fakeEngine) OnCandle(_ context.Context, c models.Candle) (*models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCandle = append(f.onCandle, c.Time)
	f.last[c.Symbol] = c.Time
	if f.signal == nil {
		return nil, nil
	}
	s := *f.signal
	s.Symbol = c.Symbol
	return &s, nil
}

type fakePositions struct {
	mu     sync.Mutex
	opened []models.Signal
	open   []*models.Position
	err    error
}

func (f *fakePositions) Open(_ context.Context, sig models.Signal) (*models.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.opened = append(f.opened, sig)
	return &models.Position{ID: "p", Symbol: sig.Symbol, Side: sig.Side, Quantity: 1}, nil
}

func (f *fakePositions) ListOpen(context.Context) ([]*models.Position, error) {
	return f.open, nil
}

type fakeMonitor struct {
	res   positions.CheckResult
	calls int
}

func (f *fakeMonitor) Check(context.Context) (positions.CheckResult, error) {
	f.calls++
	return f.res, nil
}

type fakeRecovery struct {
	mu    sync.Mutex
	fails int
	calls int
}

func (f *fakeRecovery) Run(context.Context) (positions.RecoverySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return positions.RecoverySummary{}, errors.New("venue down")
	}
	return positions.RecoverySummary{Policy: positions.PolicyTrustVenue}, nil
}

type fakeStatus struct {
	mu      sync.Mutex
	ready   bool
	signal  time.Time
	monitor time.Time
	open    int
}

func (f *fakeStatus) SetReady(v bool) { f.mu.Lock(); f.ready = v; f.mu.Unlock() }
func (f *fakeStatus) MarkSignalCycle(t time.Time) {
	f.mu.Lock()
	f.signal = t
	f.mu.Unlock()
}
func (f *fakeStatus) MarkMonitorCycle(t time.Time, open int) {
	f.mu.Lock()
	f.monitor, f.open = t, open
	f.mu.Unlock()
}
func (f *fakeStatus) isReady() bool { f.mu.Lock(); defer f.mu.Unlock(); return f.ready }

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeNotifier) Send(msg string) { f.mu.Lock(); f.msgs = append(f.msgs, msg); f.mu.Unlock() }
func (f *fakeNotifier) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

func hourly(symbol string, n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{Symbol: symbol, Time: base.Add(time.Duration(i) * time.Hour), Open: 1, High: 2, Low: 0.5, Close: 1.5}
	}
	return out
}

type harness struct {
	r       *Runner
	candles *fakeCandles
	engine  *fakeEngine
	pos     *fakePositions
	mon     *fakeMonitor
	rec     *fakeRecovery
	status  *fakeStatus
	n       *fakeNotifier
}

func newHarness(now time.Time) *harness {
	h := &harness{
		candles: &fakeCandles{series: map[string][]models.Candle{}},
		engine:  &fakeEngine{last: map[string]time.Time{}},
		pos:     &fakePositions{},
		mon:     &fakeMonitor{},
		rec:     &fakeRecovery{},
		status:  &fakeStatus{},
		n:       &fakeNotifier{},
	}
	h.r = New(Config{
		Symbols:         []string{"btc-usdt-swap"},
		Timeframe:       "1h",
		HistoryCandles:  10,
		SignalInterval:  time.Hour,
		MonitorInterval: 10 * time.Millisecond,
		CallTimeout:     time.Second,
		Workers:         2,
	}, h.candles, h.engine, h.pos, h.mon, h.rec, h.status, h.n)
	h.r.now = func() time.Time { return now }
	return h
}

func TestSignalCycleOnlyNewestCandleOpens(t *testing.T) {
	// 5 closed candles plus one still forming
	now := base.Add(5*time.Hour + 30*time.Minute)
	h := newHarness(now)
	h.candles.series["BTC-USDT-SWAP"] = hourly("BTC-USDT-SWAP", 6)
	h.engine.signal = &models.Signal{Side: models.SideBuy, EntryPrice: 1.5, StopLoss: 1, TakeProfit: 2.5}

	h.r.SignalCycle(context.Background())

	if len(h.engine.ingested) != 4 {
		t.Fatalf("ingested %d candles, want 4", len(h.engine.ingested))
	}
	if len(h.engine.onCandle) != 1 || !h.engine.onCandle[0].Equal(base.Add(4*time.Hour)) {
		t.Fatalf("onCandle = %v, want the 04:00 candle", h.engine.onCandle)
	}
	if len(h.pos.opened) != 1 || h.pos.opened[0].Symbol != "BTC-USDT-SWAP" {
		t.Fatalf("opened = %+v", h.pos.opened)
	}
	if h.status.signal.IsZero() {
		t.Fatal("signal cycle not recorded")
	}
}

func TestSignalCycleFetchesSinceLastCandle(t *testing.T) {
	now := base.Add(5*time.Hour + 30*time.Minute)
	h := newHarness(now)
	h.candles.series["BTC-USDT-SWAP"] = hourly("BTC-USDT-SWAP", 6)

	h.r.SignalCycle(context.Background())
	h.r.SignalCycle(context.Background())

	if len(h.candles.starts) != 2 {
		t.Fatalf("fetches = %d", len(h.candles.starts))
	}
	if want := now.Add(-11 * time.Hour); !h.candles.starts[0].Equal(want) {
		t.Fatalf("first start = %v, want %v", h.candles.starts[0], want)
	}
	if want := base.Add(5 * time.Hour); !h.candles.starts[1].Equal(want) {
		t.Fatalf("second start = %v, want %v", h.candles.starts[1], want)
	}
	// nothing new on the second pass
	if len(h.engine.onCandle) != 1 {
		t.Fatalf("onCandle calls = %d, want 1", len(h.engine.onCandle))
	}
}

func TestSignalCycleRejectedOrderIsDropped(t *testing.T) {
	now := base.Add(2 * time.Hour)
	h := newHarness(now)
	h.candles.series["BTC-USDT-SWAP"] = hourly("BTC-USDT-SWAP", 2)
	h.engine.signal = &models.Signal{Side: models.SideSell}
	h.pos.err = models.ErrInsufficientBalance

	h.r.SignalCycle(context.Background())

	if len(h.pos.opened) != 0 {
		t.Fatalf("opened = %v", h.pos.opened)
	}
}

func TestSignalCycleFetchErrorDoesNotPanic(t *testing.T) {
	h := newHarness(base.Add(time.Hour))
	h.candles.err = errors.New("timeout")

	h.r.SignalCycle(context.Background())

	if len(h.engine.onCandle) != 0 {
		t.Fatal("engine should not run without candles")
	}
}

func TestMonitorCycleRecordsOpenCount(t *testing.T) {
	h := newHarness(base)
	h.mon.res = positions.CheckResult{Positions: 3, Closed: 1}

	h.r.MonitorCycle(context.Background())

	if h.status.open != 2 || h.status.monitor.IsZero() {
		t.Fatalf("status = %+v", h.status)
	}
}

func TestStartRetriesRecoveryThenStops(t *testing.T) {
	h := newHarness(base)
	h.rec.fails = 2
	h.pos.open = []*models.Position{{ID: "p1", Symbol: "BTC-USDT-SWAP", Side: models.SideBuy, Quantity: 1}}

	h.r.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for !h.status.isReady() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !h.status.isReady() {
		t.Fatal("runner never became ready")
	}

	if err := h.r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if h.status.isReady() {
		t.Fatal("still ready after stop")
	}

	h.rec.mu.Lock()
	calls := h.rec.calls
	h.rec.mu.Unlock()
	if calls != 3 {
		t.Fatalf("recovery calls = %d, want 3", calls)
	}

	msgs := h.n.all()
	if last := msgs[len(msgs)-1]; !strings.Contains(last, "1 position(s) left open") || !strings.Contains(last, "p1") {
		t.Fatalf("shutdown summary = %q", last)
	}
}

type fakeVenue struct{ open []models.VenuePosition }

func (f *fakeVenue) OpenPositions(context.Context) ([]models.VenuePosition, error) {
	return f.open, nil
}

type fakeFinalizer struct{}

func (fakeFinalizer) Finalize(_ context.Context, id string, _ float64, _ models.ExitReason) (*models.Position, error) {
	return &models.Position{ID: id, Status: models.StatusClosed}, nil
}

func TestStartSendsReconciliationSummaryOnce(t *testing.T) {
	ctx := context.Background()
	store := positions.NewMemoryStore()
	local := &models.Position{ID: "p1", Symbol: "BTC-USDT-SWAP", Side: models.SideBuy, Quantity: 1, EntryPrice: 100, Status: models.StatusOpen, EntryTime: base}
	if err := store.Create(ctx, local); err != nil {
		t.Fatal(err)
	}
	venue := &fakeVenue{open: []models.VenuePosition{
		{Symbol: "BTC-USDT-SWAP", Side: models.SideBuy, Size: 1, AvgPrice: 100},
		{Symbol: "ETH-USDT-SWAP", Side: models.SideSell, Size: 2, AvgPrice: 50},
	}}
	n := &fakeNotifier{}
	rec := positions.NewReconciler(positions.PolicyTrustVenue, store, venue, fakeFinalizer{}, nil, n, time.Second)

	h := newHarness(base)
	h.r = New(h.r.cfg, h.candles, h.engine, h.pos, h.mon, rec, h.status, n)
	h.r.now = func() time.Time { return base }

	h.r.Start(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for !h.status.isReady() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !h.status.isReady() {
		t.Fatal("runner never became ready")
	}
	if err := h.r.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	summaries := 0
	for _, m := range n.all() {
		if strings.Contains(m, "Startup reconciliation") {
			summaries++
			if !strings.Contains(m, "untracked venue position: ETH-USDT-SWAP") {
				t.Fatalf("summary misses untracked position: %q", m)
			}
		}
	}
	if summaries != 1 {
		t.Fatalf("reconciliation summary sent %d times, want 1: %q", summaries, n.all())
	}
}
