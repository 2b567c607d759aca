package service

import (
	"context"
	"testing"
	"time"

	"breakout_bot/internal/models"
)

func seed(t *testing.T, store *MemoryStore, id, symbol string) {
	t.Helper()
	p := &models.Position{ID: id, Symbol: symbol, Side: models.SideBuy, EntryPrice: 110, StopLoss: 100,
		TakeProfit: 130, Quantity: 1, Leverage: 1, Status: models.StatusOpen, EntryTime: time.Now()}
	if err := store.Create(context.Background(), p); err != nil {
		t.Fatal(err)
	}
}

func TestRecoveryTrustVenue(t *testing.T) {
	exec := newFakeExec()
	n := &fakeNotifier{}
	m, store := newTestManager(exec, n)
	seed(t, store, "matched", "BTC")
	seed(t, store, "orphan", "ETH")
	exec.lists = []models.VenuePosition{
		{Symbol: "BTC", Side: models.SideBuy, Size: 1, AvgPrice: 110},
		{Symbol: "XRP", Side: models.SideSell, Size: 5, AvgPrice: 0.5},
	}
	exec.sizes["BTC"], exec.sizes["XRP"] = 1, 5
	prices := &seqPrices{prices: map[string][]float64{"ETH": {112}}}

	r := NewReconciler(PolicyTrustVenue, store, exec, m, prices, n, time.Second)
	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(sum.Matched) != 1 || sum.Matched[0] != "matched" {
		t.Fatalf("matched %v", sum.Matched)
	}
	if len(sum.Closed) != 1 || sum.Closed[0] != "orphan" {
		t.Fatalf("closed %v", sum.Closed)
	}
	if len(sum.Untracked) != 1 || sum.Untracked[0].Symbol != "XRP" {
		t.Fatalf("untracked %v", sum.Untracked)
	}

	orphan, _ := store.Get(context.Background(), "orphan")
	if orphan.IsOpen() || *orphan.ExitReason != models.ExitReconciled || *orphan.ExitPrice != 112 {
		t.Fatalf("orphan not reconciled: %+v", orphan)
	}
	if len(exec.exits) != 0 {
		t.Fatal("recovery sent an exit order")
	}

	// exposure is correct before the first cycle
	if open, err := m.HasOpenPosition(context.Background(), "XRP"); err != nil || !open {
		t.Fatalf("untracked venue position must block entries (open=%v err=%v)", open, err)
	}
	if open, _ := m.HasOpenPosition(context.Background(), "ETH"); open {
		t.Fatal("reconciled symbol still reported open")
	}
}

func TestRecoveryTrustLocal(t *testing.T) {
	exec := newFakeExec()
	n := &fakeNotifier{}
	m, store := newTestManager(exec, n)
	seed(t, store, "orphan", "ETH")

	r := NewReconciler(PolicyTrustLocal, store, exec, m, nil, n, time.Second)
	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Kept) != 1 || len(sum.Closed) != 0 {
		t.Fatalf("summary %+v", sum)
	}
	p, _ := store.Get(context.Background(), "orphan")
	if !p.IsOpen() {
		t.Fatal("trust_local closed a local record")
	}
	if n.count() != 1 {
		t.Fatalf("want one summary notice, got %d", n.count())
	}
}
