package service

import (
	"context"
	"errors"
	"sync"

	"breakout_bot/internal/models"
)

type order struct {
	symbol string
	side   models.Side
	qty    float64
}

type fakeExec struct {
	mu       sync.Mutex
	sizes    map[string]float64
	sizeErr  error
	entryErr error
	exitErr  error
	dupSize  float64 // venue size to expose after a duplicate order error
	entries  []order
	exits    []order
	exitIDs  []string
	lists    []models.VenuePosition
}

func newFakeExec() *fakeExec {
	return &fakeExec{sizes: make(map[string]float64)}
}

func (f *fakeExec) PlaceEntryOrder(_ context.Context, symbol string, side models.Side, qty float64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, order{symbol, side, qty})
	if f.entryErr != nil {
		if errors.Is(f.entryErr, models.ErrDuplicateOrder) {
			f.sizes[symbol] = f.dupSize
		}
		return "", f.entryErr
	}
	f.sizes[symbol] = qty
	return "ord-" + symbol, nil
}

func (f *fakeExec) PlaceExitOrder(_ context.Context, symbol string, side models.Side, qty float64, clientID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exits = append(f.exits, order{symbol, side, qty})
	f.exitIDs = append(f.exitIDs, clientID)
	if f.exitErr != nil {
		if errors.Is(f.exitErr, models.ErrDuplicateOrder) {
			f.sizes[symbol] = f.dupSize
		}
		return "", f.exitErr
	}
	f.sizes[symbol] = 0
	return "exit-" + symbol, nil
}

func (f *fakeExec) GetOpenPositionSize(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sizeErr != nil {
		return 0, f.sizeErr
	}
	return f.sizes[symbol], nil
}

func (f *fakeExec) OpenPositions(_ context.Context) ([]models.VenuePosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Send(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

// seqPrices returns the next configured price per symbol on each call.
type seqPrices struct {
	mu     sync.Mutex
	prices map[string][]float64
	errs   map[string]error
}

func (s *seqPrices) GetMarkPrice(_ context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[symbol]; err != nil {
		return 0, err
	}
	seq := s.prices[symbol]
	if len(seq) == 0 {
		return 0, errors.New("no price")
	}
	p := seq[0]
	if len(seq) > 1 {
		s.prices[symbol] = seq[1:]
	}
	return p, nil
}

func buySignal(symbol string) models.Signal {
	return models.Signal{Symbol: symbol, Side: models.SideBuy, EntryPrice: 110, StopLoss: 100, TakeProfit: 130, Reason: "test"}
}

func newTestManager(exec *fakeExec, n *fakeNotifier) (*Manager, *MemoryStore) {
	store := NewMemoryStore()
	m := NewManager(ManagerConfig{Leverage: 2}, store, exec, Sizer{Mode: SizeFixed, Quantity: 1}, n)
	return m, store
}
