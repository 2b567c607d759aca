package models

import "time"

type PositionStatus string

const (
	StatusOpen   PositionStatus = "OPEN"
	StatusClosed PositionStatus = "CLOSED"
)

type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop-loss"
	ExitTakeProfit ExitReason = "take-profit"
	ExitManual     ExitReason = "manual"
	ExitReconciled ExitReason = "reconciled"
)

type Position struct {
	ID         string
	Symbol     string
	Side       Side
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Quantity   float64
	Leverage   float64
	Status     PositionStatus
	OrderID    string
	Reason     string
	EntryTime  time.Time

	ExitTime   *time.Time
	ExitPrice  *float64
	ExitReason *ExitReason
	PnL        *float64
}

func (p *Position) IsOpen() bool { return p.Status == StatusOpen }

// Clone returns a deep copy so callers cannot mutate stored records.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	c := *p
	if p.ExitTime != nil {
		t := *p.ExitTime
		c.ExitTime = &t
	}
	if p.ExitPrice != nil {
		v := *p.ExitPrice
		c.ExitPrice = &v
	}
	if p.ExitReason != nil {
		r := *p.ExitReason
		c.ExitReason = &r
	}
	if p.PnL != nil {
		v := *p.PnL
		c.PnL = &v
	}
	return &c
}

// PnLAt is the side-adjusted profit of closing at price.
func (p *Position) PnLAt(price float64) float64 {
	lev := p.Leverage
	if lev <= 0 {
		lev = 1
	}
	pnl := (price - p.EntryPrice) * p.Quantity * lev
	if p.Side == SideSell {
		pnl = -pnl
	}
	return pnl
}
