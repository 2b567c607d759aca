package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"breakout_bot/internal/models"
)

type fakePositions struct {
	open   []*models.Position
	closed []string
	err    error
}

func (f *fakePositions) ListOpen(context.Context) ([]*models.Position, error) {
	return f.open, f.err
}

func (f *fakePositions) Close(_ context.Context, id string, exitPrice float64, reason models.ExitReason) (*models.Position, error) {
	for _, p := range f.open {
		if p.ID != id {
			continue
		}
		if reason != models.ExitManual {
			return nil, errors.New("unexpected reason")
		}
		f.closed = append(f.closed, id)
		c := p.Clone()
		pnl := c.PnLAt(exitPrice)
		c.PnL = &pnl
		return c, nil
	}
	return nil, models.ErrNotFound
}

type fixedPrice float64

func (f fixedPrice) GetMarkPrice(context.Context, string) (float64, error) { return float64(f), nil }

type fakeStatus struct{}

func (fakeStatus) Ready() bool                 { return true }
func (fakeStatus) WSConnected() bool           { return false }
func (fakeStatus) Uptime() time.Duration       { return time.Minute }
func (fakeStatus) LastSignalCycle() time.Time  { return time.Time{} }
func (fakeStatus) LastMonitorCycle() time.Time { return time.Now() }

func openPosition() *models.Position {
	return &models.Position{
		ID: "p1", Symbol: "BTC-USDT-SWAP", Side: models.SideBuy,
		EntryPrice: 100, StopLoss: 99, TakeProfit: 102, Quantity: 2, Leverage: 1,
		Status: models.StatusOpen, EntryTime: time.Now(),
	}
}

func TestPositionsCommand(t *testing.T) {
	c := NewCommands(&fakePositions{open: []*models.Position{openPosition()}}, fixedPrice(101), fakeStatus{}, time.Second)

	reply := c.Handle(context.Background(), "positions", "")
	if !strings.Contains(reply, "p1") || !strings.Contains(reply, "uPnL=2.0000") {
		t.Fatalf("reply = %q", reply)
	}

	empty := NewCommands(&fakePositions{}, fixedPrice(1), fakeStatus{}, time.Second)
	if reply := empty.Handle(context.Background(), "positions", ""); !strings.Contains(reply, "no open positions") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestCloseCommandUsesMarkPrice(t *testing.T) {
	fp := &fakePositions{open: []*models.Position{openPosition()}}
	c := NewCommands(fp, fixedPrice(103), fakeStatus{}, time.Second)

	reply := c.Handle(context.Background(), "close", " p1 ")
	if !strings.Contains(reply, "closed p1") || !strings.Contains(reply, "PnL 6.0000") {
		t.Fatalf("reply = %q", reply)
	}
	if len(fp.closed) != 1 {
		t.Fatalf("closed = %v", fp.closed)
	}

	if reply := c.Handle(context.Background(), "close", "nope"); !strings.Contains(reply, "no open position nope") {
		t.Fatalf("reply = %q", reply)
	}
	if reply := c.Handle(context.Background(), "close", ""); !strings.HasPrefix(reply, "usage") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestStatusAndUnknownCommands(t *testing.T) {
	c := NewCommands(&fakePositions{}, fixedPrice(1), fakeStatus{}, time.Second)

	reply := c.Handle(context.Background(), "status", "")
	if !strings.Contains(reply, "ready=true") || !strings.Contains(reply, "signal cycle: never") {
		t.Fatalf("reply = %q", reply)
	}
	if reply := c.Handle(context.Background(), "foo", ""); !strings.Contains(reply, "unknown command /foo") {
		t.Fatalf("reply = %q", reply)
	}
}
