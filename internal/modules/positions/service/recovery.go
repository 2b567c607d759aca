package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"breakout_bot/internal/models"
	"breakout_bot/pkg/logger"
)

const (
	PolicyTrustVenue = "trust_venue"
	PolicyTrustLocal = "trust_local"
)

type finalizer interface {
	Finalize(ctx context.Context, id string, exitPrice float64, reason models.ExitReason) (*models.Position, error)
}

type RecoverySummary struct {
	Policy    string
	Local     int
	Venue     int
	Matched   []string
	Closed    []string
	Kept      []string
	Untracked []models.VenuePosition
}

func (s RecoverySummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔄 Startup reconciliation (%s)\n", s.Policy)
	fmt.Fprintf(&b, "local open: %d, venue open: %d, matched: %d\n", s.Local, s.Venue, len(s.Matched))
	if len(s.Closed) > 0 {
		fmt.Fprintf(&b, "closed locally (no venue position): %s\n", strings.Join(s.Closed, ", "))
	}
	if len(s.Kept) > 0 {
		fmt.Fprintf(&b, "kept open without venue position: %s\n", strings.Join(s.Kept, ", "))
	}
	for _, v := range s.Untracked {
		fmt.Fprintf(&b, "untracked venue position: %s %s size=%g avg=%.6f\n", v.Symbol, v.Side, v.Size, v.AvgPrice)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Reconciler aligns the local store with the venue before trading starts.
type Reconciler struct {
	policy   string
	store    Store
	venue    VenueLister
	closer   finalizer
	prices   PriceSource
	notifier Notifier
	timeout  time.Duration
}

func NewReconciler(policy string, store Store, venue VenueLister, closer finalizer, prices PriceSource, n Notifier, timeout time.Duration) *Reconciler {
	if policy == "" {
		policy = PolicyTrustVenue
	}
	return &Reconciler{
		policy:   policy,
		store:    store,
		venue:    venue,
		closer:   closer,
		prices:   prices,
		notifier: n,
		timeout:  timeout,
	}
}

func (r *Reconciler) Run(ctx context.Context) (RecoverySummary, error) {
	sum := RecoverySummary{Policy: r.policy}

	callCtx, cancel := withTimeout(ctx, r.timeout)
	venue, err := r.venue.OpenPositions(callCtx)
	cancel()
	if err != nil {
		return sum, fmt.Errorf("Reconciler.Run: venue positions: %w", err)
	}
	local, err := r.store.ListOpen(ctx)
	if err != nil {
		return sum, fmt.Errorf("Reconciler.Run: local positions: %w", err)
	}

	venueBySymbol := make(map[string]models.VenuePosition, len(venue))
	for _, v := range venue {
		if v.Size > 0 {
			venueBySymbol[v.Symbol] = v
		}
	}
	sum.Local, sum.Venue = len(local), len(venueBySymbol)

	claimed := make(map[string]bool, len(local))
	for _, p := range local {
		v, ok := venueBySymbol[p.Symbol]
		if ok && v.Side == p.Side {
			claimed[p.Symbol] = true
			sum.Matched = append(sum.Matched, p.ID)
			continue
		}

		if r.policy == PolicyTrustLocal {
			logger.Warn("[RECOVERY] %s %s has no venue position, kept open", p.ID, p.Symbol)
			sum.Kept = append(sum.Kept, p.ID)
			continue
		}

		price := r.exitPrice(ctx, p)
		if _, err := r.closer.Finalize(ctx, p.ID, price, models.ExitReconciled); err != nil {
			return sum, fmt.Errorf("Reconciler.Run: finalize %s: %w", p.ID, err)
		}
		sum.Closed = append(sum.Closed, p.ID)
	}

	for symbol, v := range venueBySymbol {
		if !claimed[symbol] {
			sum.Untracked = append(sum.Untracked, v)
		}
	}

	logger.Info("[RECOVERY] policy=%s local=%d venue=%d matched=%d closed=%d kept=%d untracked=%d",
		sum.Policy, sum.Local, sum.Venue, len(sum.Matched), len(sum.Closed), len(sum.Kept), len(sum.Untracked))
	r.notifier.Send(sum.String())
	return sum, nil
}

func (r *Reconciler) exitPrice(ctx context.Context, p *models.Position) float64 {
	if r.prices == nil {
		return p.EntryPrice
	}
	callCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	price, err := r.prices.GetMarkPrice(callCtx, p.Symbol)
	if err != nil || price <= 0 {
		logger.Warn("[RECOVERY] %s mark price unavailable, closing at entry: %v", p.Symbol, err)
		return p.EntryPrice
	}
	return price
}
