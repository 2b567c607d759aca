package pg

import (
	"context"
	"errors"
	"fmt"

	"breakout_bot/internal/models"
	"breakout_bot/internal/modules/positions/pg/sql"
	"breakout_bot/pkg/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const uniqueViolation = "23505"

// Positions implement db store
type Positions struct {
	tx  db.TxManager
	sql *sql.Queries
}

// New instance
func New(tx db.TxManager) *Positions {
	return &Positions{
		tx:  tx,
		sql: sql.New(),
	}
}

func (p *Positions) Create(ctx context.Context, pos *models.Position) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.Create: %w", err)
		}
	}()

	err = p.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return p.sql.InsertPosition(ctxTx, tx, &sql.InsertPositionParams{
			ID:         pos.ID,
			Symbol:     pos.Symbol,
			Side:       string(pos.Side),
			EntryPrice: pos.EntryPrice,
			StopLoss:   pos.StopLoss,
			TakeProfit: pos.TakeProfit,
			Quantity:   pos.Quantity,
			Leverage:   pos.Leverage,
			Status:     string(pos.Status),
			OrderID:    pos.OrderID,
			Reason:     pos.Reason,
			EntryTime:  pgtype.Timestamptz{Time: pos.EntryTime, Valid: true},
		})
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", models.ErrPositionExists, pos.Symbol)
	}
	return err
}

func (p *Positions) Get(ctx context.Context, id string) (pos *models.Position, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.Get %s: %w", id, err)
		}
	}()

	row, err := p.sql.GetPosition(ctx, p.tx.Conn(), id)
	if err != nil {
		return nil, notFound(err)
	}
	return toModel(row), nil
}

func (p *Positions) OpenBySymbol(ctx context.Context, symbol string) (pos *models.Position, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.OpenBySymbol %s: %w", symbol, err)
		}
	}()

	row, err := p.sql.GetOpenPositionBySymbol(ctx, p.tx.Conn(), symbol)
	if err != nil {
		return nil, notFound(err)
	}
	return toModel(row), nil
}

func (p *Positions) ListOpen(ctx context.Context) (out []*models.Position, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.ListOpen: %w", err)
		}
	}()

	// reconciliation compares this list against the venue, so read it from one snapshot
	var rows []*sql.Position
	err = p.tx.RunRepeatableRead(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		var qErr error
		rows, qErr = p.sql.ListOpenPositions(ctxTx, tx)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	out = make([]*models.Position, 0, len(rows))
	for _, r := range rows {
		out = append(out, toModel(r))
	}
	return out, nil
}

func (p *Positions) MarkClosed(ctx context.Context, pos *models.Position) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.MarkClosed %s: %w", pos.ID, err)
		}
	}()

	params := &sql.ClosePositionParams{ID: pos.ID}
	if pos.ExitTime != nil {
		params.ExitTime = pgtype.Timestamptz{Time: *pos.ExitTime, Valid: true}
	}
	if pos.ExitPrice != nil {
		params.ExitPrice = pgtype.Float8{Float64: *pos.ExitPrice, Valid: true}
	}
	if pos.ExitReason != nil {
		params.ExitReason = pgtype.Text{String: string(*pos.ExitReason), Valid: true}
	}
	if pos.PnL != nil {
		params.Pnl = pgtype.Float8{Float64: *pos.PnL, Valid: true}
	}

	return p.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		n, err := p.sql.ClosePosition(ctxTx, tx, params)
		if err != nil {
			return err
		}
		if n == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

func toModel(r *sql.Position) *models.Position {
	p := &models.Position{
		ID:         r.ID,
		Symbol:     r.Symbol,
		Side:       models.Side(r.Side),
		EntryPrice: r.EntryPrice,
		StopLoss:   r.StopLoss,
		TakeProfit: r.TakeProfit,
		Quantity:   r.Quantity,
		Leverage:   r.Leverage,
		Status:     models.PositionStatus(r.Status),
		OrderID:    r.OrderID,
		Reason:     r.Reason,
		EntryTime:  r.EntryTime.Time,
	}
	if r.ExitTime.Valid {
		t := r.ExitTime.Time
		p.ExitTime = &t
	}
	if r.ExitPrice.Valid {
		v := r.ExitPrice.Float64
		p.ExitPrice = &v
	}
	if r.ExitReason.Valid {
		reason := models.ExitReason(r.ExitReason.String)
		p.ExitReason = &reason
	}
	if r.Pnl.Valid {
		v := r.Pnl.Float64
		p.PnL = &v
	}
	return p
}
