package service

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"

	"breakout_bot/internal/models"
)

type positionRow struct {
	InstID  string `json:"instId"`
	PosSide string `json:"posSide"`
	Pos     string `json:"pos"`
	AvgPx   string `json:"avgPx"`
	MarkPx  string `json:"markPx"`
	Lever   string `json:"lever"`
	Upl     string `json:"upl"`
}

func (r positionRow) toModel() models.VenuePosition {
	pos := parseFloat(r.Pos)
	side := models.SideBuy
	switch r.PosSide {
	case "short":
		side = models.SideSell
	case "long":
	default: // net mode carries the direction in the sign
		if pos < 0 {
			side = models.SideSell
		}
	}
	return models.VenuePosition{
		Symbol:   r.InstID,
		Side:     side,
		Size:     math.Abs(pos),
		AvgPrice: parseFloat(r.AvgPx),
	}
}

func (c *Client) positions(ctx context.Context, symbol string) ([]models.VenuePosition, error) {
	q := url.Values{}
	q.Set("instType", "SWAP")
	if symbol != "" {
		q.Set("instId", symbol)
	}

	var rows []positionRow
	if _, err := c.do(ctx, http.MethodGet, "/api/v5/account/positions", q, nil, true, &rows); err != nil {
		return nil, err
	}
	out := make([]models.VenuePosition, 0, len(rows))
	for _, r := range rows {
		if vp := r.toModel(); vp.Size > 0 {
			out = append(out, vp)
		}
	}
	return out, nil
}

// OpenPositions lists all non-zero SWAP positions on the account.
func (c *Client) OpenPositions(ctx context.Context) ([]models.VenuePosition, error) {
	out, err := c.positions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("OpenPositions: %w", err)
	}
	return out, nil
}

// GetOpenPositionSize returns the absolute position size for symbol, 0 when flat.
func (c *Client) GetOpenPositionSize(ctx context.Context, symbol string) (float64, error) {
	ps, err := c.positions(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("GetOpenPositionSize %s: %w", symbol, err)
	}
	var size float64
	for _, p := range ps {
		size += p.Size
	}
	return size, nil
}
