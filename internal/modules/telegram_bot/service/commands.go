package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"breakout_bot/internal/models"
)

type Positions interface {
	ListOpen(ctx context.Context) ([]*models.Position, error)
	Close(ctx context.Context, id string, exitPrice float64, reason models.ExitReason) (*models.Position, error)
}

type PriceSource interface {
	GetMarkPrice(ctx context.Context, symbol string) (float64, error)
}

type Status interface {
	Ready() bool
	WSConnected() bool
	Uptime() time.Duration
	LastSignalCycle() time.Time
	LastMonitorCycle() time.Time
}

// Commands answers chat commands; replies are plain text.
type Commands struct {
	positions Positions
	prices    PriceSource
	status    Status
	timeout   time.Duration
}

func NewCommands(positions Positions, prices PriceSource, status Status, timeout time.Duration) *Commands {
	return &Commands{positions: positions, prices: prices, status: status, timeout: timeout}
}

func (c *Commands) Handle(ctx context.Context, command, args string) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	switch command {
	case "start", "help":
		return "Commands:\n/positions - open positions\n/close <id> - close at mark price\n/status - bot status"
	case "positions":
		return c.listPositions(ctx)
	case "close":
		return c.closePosition(ctx, strings.TrimSpace(args))
	case "status":
		return c.statusText()
	default:
		return fmt.Sprintf("unknown command /%s, try /help", command)
	}
}

func (c *Commands) listPositions(ctx context.Context) string {
	ps, err := c.positions.ListOpen(ctx)
	if err != nil {
		return fmt.Sprintf("❗️ failed to list positions: %v", err)
	}
	if len(ps) == 0 {
		return "📭 no open positions"
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].EntryTime.Before(ps[j].EntryTime) })

	var b strings.Builder
	b.WriteString("📊 open positions:\n")
	for _, p := range ps {
		fmt.Fprintf(&b, "• %s %s %s qty=%g entry=%g SL=%g TP=%g",
			p.ID, p.Symbol, p.Side, p.Quantity, p.EntryPrice, p.StopLoss, p.TakeProfit)
		if px, err := c.prices.GetMarkPrice(ctx, p.Symbol); err == nil {
			fmt.Fprintf(&b, " mark=%g uPnL=%.4f", px, p.PnLAt(px))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (c *Commands) closePosition(ctx context.Context, id string) string {
	if id == "" {
		return "usage: /close <id>"
	}
	ps, err := c.positions.ListOpen(ctx)
	if err != nil {
		return fmt.Sprintf("❗️ failed to list positions: %v", err)
	}
	var target *models.Position
	for _, p := range ps {
		if p.ID == id {
			target = p
			break
		}
	}
	if target == nil {
		return fmt.Sprintf("no open position %s", id)
	}

	px, err := c.prices.GetMarkPrice(ctx, target.Symbol)
	if err != nil {
		return fmt.Sprintf("❗️ no mark price for %s: %v", target.Symbol, err)
	}
	closed, err := c.positions.Close(ctx, id, px, models.ExitManual)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Sprintf("no open position %s", id)
		}
		return fmt.Sprintf("❗️ close %s failed: %v", id, err)
	}
	pnl := 0.0
	if closed.PnL != nil {
		pnl = *closed.PnL
	}
	return fmt.Sprintf("✅ closed %s %s at %g, PnL %.4f", closed.ID, closed.Symbol, px, pnl)
}

func (c *Commands) statusText() string {
	ago := func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return time.Since(t).Truncate(time.Second).String() + " ago"
	}
	return fmt.Sprintf("ready=%t ws=%t uptime=%s\nsignal cycle: %s\nmonitor cycle: %s",
		c.status.Ready(), c.status.WSConnected(), c.status.Uptime().Truncate(time.Second),
		ago(c.status.LastSignalCycle()), ago(c.status.LastMonitorCycle()))
}
