package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"breakout_bot/internal/models"
	"breakout_bot/pkg/logger"
	"breakout_bot/pkg/tracing"

	"github.com/google/uuid"
)

// Executor places orders at the venue. side is always the side of the position
// being entered or exited.
type Executor interface {
	PlaceEntryOrder(ctx context.Context, symbol string, side models.Side, qty float64, clientID string) (string, error)
	PlaceExitOrder(ctx context.Context, symbol string, side models.Side, qty float64, clientID string) (string, error)
	GetOpenPositionSize(ctx context.Context, symbol string) (float64, error)
}

type VenueLister interface {
	OpenPositions(ctx context.Context) ([]models.VenuePosition, error)
}

type PriceSource interface {
	GetMarkPrice(ctx context.Context, symbol string) (float64, error)
}

// Notifier must not block.
type Notifier interface {
	Send(msg string)
}

type ManagerConfig struct {
	Leverage    float64
	CallTimeout time.Duration
}

// Manager is the only writer of position state.
type Manager struct {
	cfg      ManagerConfig
	store    Store
	exec     Executor
	exposure *Exposure
	sizer    Sizer
	notifier Notifier
	locks    *symbolLocks

	now func() time.Time
}

func NewManager(cfg ManagerConfig, store Store, exec Executor, sizer Sizer, n Notifier) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		exec:     exec,
		exposure: NewExposure(store, exec, cfg.CallTimeout),
		sizer:    sizer,
		notifier: n,
		locks:    newSymbolLocks(),
		now:      time.Now,
	}
}

func (m *Manager) HasOpenPosition(ctx context.Context, symbol string) (bool, error) {
	rep, err := m.exposure.Check(ctx, symbol)
	if err != nil {
		return false, err
	}
	return rep.Open(), nil
}

func (m *Manager) Get(ctx context.Context, id string) (*models.Position, error) {
	return m.store.Get(ctx, id)
}

func (m *Manager) ListOpen(ctx context.Context) ([]*models.Position, error) {
	return m.store.ListOpen(ctx)
}

// Open turns an accepted signal into an OPEN position. Nothing is persisted unless
// the venue accepted the entry order.
func (m *Manager) Open(ctx context.Context, sig models.Signal) (pos *models.Position, err error) {
	span, ctx := tracing.StartSpan(ctx, "positions.open")
	span.SetTag("symbol", sig.Symbol)
	defer func() { tracing.Finish(span, err) }()

	if err = sig.Validate(); err != nil {
		logger.Warn("[POSITIONS] rejected signal: %v", err)
		return nil, err
	}

	unlock := m.locks.Lock(sig.Symbol)
	defer unlock()

	rep, err := m.exposure.Check(ctx, sig.Symbol)
	if err != nil {
		return nil, fmt.Errorf("Manager.Open: %w", err)
	}
	if rep.Open() {
		logger.Info("[POSITIONS] %s %s rejected: %s", sig.Symbol, sig.Side, rep)
		return nil, fmt.Errorf("Manager.Open: %w: %s", models.ErrPositionExists, rep)
	}

	qty, err := m.sizer.Size(sig)
	if err != nil {
		return nil, fmt.Errorf("Manager.Open: %w", err)
	}

	id := uuid.NewString()
	callCtx, cancel := withTimeout(ctx, m.cfg.CallTimeout)
	orderID, err := m.exec.PlaceEntryOrder(callCtx, sig.Symbol, sig.Side, qty, clientOrderID(id))
	cancel()
	if err != nil {
		if !errors.Is(err, models.ErrDuplicateOrder) {
			if errors.Is(err, models.ErrInsufficientBalance) || errors.Is(err, models.ErrOrderRejected) {
				m.notifier.Send(fmt.Sprintf("⚠️ %s %s entry rejected, signal dropped: %v", sig.Symbol, sig.Side, err))
			}
			return nil, fmt.Errorf("Manager.Open: entry order %s: %w", sig.Symbol, err)
		}

		size, sErr := m.venueSize(ctx, sig.Symbol)
		if sErr != nil || size <= 0 {
			return nil, fmt.Errorf("Manager.Open: duplicate entry for %s without venue position (size=%g, err=%v): %w",
				sig.Symbol, size, sErr, err)
		}
		logger.Info("[POSITIONS] %s duplicate entry treated as filled, venue size %g", sig.Symbol, size)
		qty = size
	}

	p := &models.Position{
		ID:         id,
		Symbol:     sig.Symbol,
		Side:       sig.Side,
		EntryPrice: sig.EntryPrice,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Quantity:   qty,
		Leverage:   m.leverage(),
		Status:     models.StatusOpen,
		OrderID:    orderID,
		Reason:     sig.Reason,
		EntryTime:  m.now().UTC(),
	}

	// the order is live, the record must land even if the caller gave up
	if err = m.store.Create(context.WithoutCancel(ctx), p); err != nil {
		logger.Error("[POSITIONS] %s order %s accepted but not persisted: %v", p.Symbol, orderID, err)
		m.notifier.Send(fmt.Sprintf("❗ %s order %s is live but was not recorded: %v", p.Symbol, orderID, err))
		return nil, fmt.Errorf("Manager.Open: persist %s: %w", p.Symbol, err)
	}

	logger.Info("[POSITIONS] opened %s %s %s qty=%g entry=%.6f sl=%.6f tp=%.6f",
		p.ID, p.Symbol, p.Side, p.Quantity, p.EntryPrice, p.StopLoss, p.TakeProfit)
	m.notifier.Send(formatOpened(p))
	return p.Clone(), nil
}

// Close exits the position at the venue and records it CLOSED. Closing a CLOSED
// position returns the stored record unchanged.
func (m *Manager) Close(ctx context.Context, id string, exitPrice float64, reason models.ExitReason) (*models.Position, error) {
	return m.close(ctx, id, exitPrice, reason, true)
}

// Finalize records a position CLOSED without sending an exit order.
func (m *Manager) Finalize(ctx context.Context, id string, exitPrice float64, reason models.ExitReason) (*models.Position, error) {
	return m.close(ctx, id, exitPrice, reason, false)
}

func (m *Manager) close(ctx context.Context, id string, exitPrice float64, reason models.ExitReason, withOrder bool) (pos *models.Position, err error) {
	span, ctx := tracing.StartSpan(ctx, "positions.close")
	span.SetTag("position", id)
	defer func() { tracing.Finish(span, err) }()

	p, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Manager.Close: %w", err)
	}
	if !p.IsOpen() {
		return p, nil
	}

	unlock := m.locks.Lock(p.Symbol)
	defer unlock()

	if p, err = m.store.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("Manager.Close: %w", err)
	}
	if !p.IsOpen() {
		return p, nil
	}

	if withOrder {
		if err = m.exit(ctx, p); err != nil {
			return nil, err
		}
	}

	now := m.now().UTC()
	pnl := p.PnLAt(exitPrice)
	p.Status = models.StatusClosed
	p.ExitTime = &now
	p.ExitPrice = &exitPrice
	p.ExitReason = &reason
	p.PnL = &pnl

	if err = m.store.MarkClosed(context.WithoutCancel(ctx), p); err != nil {
		logger.Error("[POSITIONS] %s exited but not recorded: %v", p.ID, err)
		return nil, fmt.Errorf("Manager.Close: persist %s: %w", p.ID, err)
	}

	logger.Info("[POSITIONS] closed %s %s %s reason=%s exit=%.6f pnl=%.4f",
		p.ID, p.Symbol, p.Side, reason, exitPrice, pnl)
	m.notifier.Send(formatClosed(p))
	return p.Clone(), nil
}

// exit sends the exit order for the size the venue actually holds.
func (m *Manager) exit(ctx context.Context, p *models.Position) error {
	qty := p.Quantity
	size, err := m.venueSize(ctx, p.Symbol)
	switch {
	case err != nil:
		logger.Warn("[POSITIONS] %s venue size unknown, exiting local qty %g: %v", p.Symbol, qty, err)
	case size == 0:
		logger.Warn("[POSITIONS] %s already flat at venue, recording close only", p.Symbol)
		return nil
	default:
		qty = size
	}

	callCtx, cancel := withTimeout(ctx, m.cfg.CallTimeout)
	_, err = m.exec.PlaceExitOrder(callCtx, p.Symbol, p.Side, qty, exitOrderID(p.ID))
	cancel()
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrDuplicateOrder) {
		return fmt.Errorf("Manager.Close: exit order %s: %w", p.Symbol, err)
	}

	// an earlier attempt already sent this exit; done once the venue is flat
	size, sErr := m.venueSize(ctx, p.Symbol)
	if sErr != nil || size > 0 {
		return fmt.Errorf("Manager.Close: duplicate exit for %s with venue position (size=%g, err=%v): %w",
			p.Symbol, size, sErr, err)
	}
	logger.Info("[POSITIONS] %s duplicate exit treated as filled, venue flat", p.Symbol)
	return nil
}

func (m *Manager) venueSize(ctx context.Context, symbol string) (float64, error) {
	callCtx, cancel := withTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()
	return m.exec.GetOpenPositionSize(callCtx, symbol)
}

func (m *Manager) leverage() float64 {
	if m.cfg.Leverage <= 0 {
		return 1
	}
	return m.cfg.Leverage
}

func clientOrderID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

// exitOrderID is stable per position so a retried close is recognised as a duplicate.
func exitOrderID(positionID string) string {
	return clientOrderID(uuid.NewSHA1(uuid.NameSpaceOID, []byte("exit:"+positionID)).String())
}

func formatOpened(p *models.Position) string {
	return fmt.Sprintf("🚀 Opened %s %s\nqty: %g\nentry: %.6f\nSL: %.6f\nTP: %.6f\nid: %s\n%s",
		p.Side, p.Symbol, p.Quantity, p.EntryPrice, p.StopLoss, p.TakeProfit, p.ID, p.Reason)
}

func formatClosed(p *models.Position) string {
	icon := "✅"
	if p.PnL != nil && *p.PnL < 0 {
		icon = "🔻"
	}
	return fmt.Sprintf("%s Closed %s %s (%s)\nentry: %.6f exit: %.6f\nPnL: %.4f\nid: %s",
		icon, p.Side, p.Symbol, *p.ExitReason, p.EntryPrice, *p.ExitPrice, *p.PnL, p.ID)
}
