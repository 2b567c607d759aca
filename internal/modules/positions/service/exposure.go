package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"breakout_bot/internal/models"
)

type ExposureReport struct {
	Symbol       string
	LocalID      string
	Local        bool
	VenueChecked bool
	VenueSize    float64
}

func (r ExposureReport) Open() bool { return r.Local || r.VenueSize > 0 }

func (r ExposureReport) String() string {
	switch {
	case r.Local:
		return fmt.Sprintf("%s local position %s", r.Symbol, r.LocalID)
	case r.VenueSize > 0:
		return fmt.Sprintf("%s venue position size %g", r.Symbol, r.VenueSize)
	default:
		return fmt.Sprintf("%s flat", r.Symbol)
	}
}

// Exposure is the read-through answer to "is this symbol already in a position":
// the local store first, then the venue.
type Exposure struct {
	store   Store
	venue   Executor
	timeout time.Duration
}

func NewExposure(store Store, venue Executor, timeout time.Duration) *Exposure {
	return &Exposure{store: store, venue: venue, timeout: timeout}
}

func (e *Exposure) Check(ctx context.Context, symbol string) (ExposureReport, error) {
	rep := ExposureReport{Symbol: symbol}

	p, err := e.store.OpenBySymbol(ctx, symbol)
	switch {
	case err == nil:
		rep.Local = true
		rep.LocalID = p.ID
		return rep, nil
	case !errors.Is(err, models.ErrNotFound):
		return rep, fmt.Errorf("Exposure.Check: local %s: %w", symbol, err)
	}

	callCtx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()
	size, err := e.venue.GetOpenPositionSize(callCtx, symbol)
	if err != nil {
		return rep, fmt.Errorf("Exposure.Check: venue %s: %w", symbol, err)
	}
	rep.VenueChecked = true
	rep.VenueSize = size
	return rep, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
