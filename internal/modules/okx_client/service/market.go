package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"breakout_bot/internal/helper"
	"breakout_bot/internal/models"
)

func (c *Client) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("instType", "SWAP")
	q.Set("instId", symbol)

	var data []struct {
		InstID string `json:"instId"`
		MarkPx string `json:"markPx"`
		Ts     string `json:"ts"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/v5/public/mark-price", q, nil, false, &data); err != nil {
		return 0, fmt.Errorf("GetMarkPrice %s: %w", symbol, err)
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("GetMarkPrice %s: %w", symbol, models.ErrNotFound)
	}
	px := parseFloat(data[0].MarkPx)
	if px <= 0 {
		return 0, fmt.Errorf("GetMarkPrice %s: bad markPx %q", symbol, data[0].MarkPx)
	}
	return px, nil
}

// Instrument returns contract metadata, cached per symbol.
func (c *Client) Instrument(ctx context.Context, symbol string) (models.Instrument, error) {
	c.metaMu.RLock()
	inst, ok := c.meta[symbol]
	c.metaMu.RUnlock()
	if ok {
		return inst, nil
	}

	q := url.Values{}
	q.Set("instType", "SWAP")
	q.Set("instId", symbol)

	var data []models.Instrument
	if _, err := c.do(ctx, http.MethodGet, "/api/v5/public/instruments", q, nil, false, &data); err != nil {
		return models.Instrument{}, fmt.Errorf("Instrument %s: %w", symbol, err)
	}
	if len(data) == 0 {
		return models.Instrument{}, fmt.Errorf("Instrument %s: %w", symbol, models.ErrNotFound)
	}
	inst = data[0]
	if inst.State != "" && inst.State != "live" {
		return models.Instrument{}, fmt.Errorf("Instrument %s not live: state=%s", symbol, inst.State)
	}

	c.metaMu.Lock()
	c.meta[symbol] = inst
	c.metaMu.Unlock()
	return inst, nil
}

// roundLot rounds qty down to the instrument lot size when metadata is available.
func (c *Client) roundLot(ctx context.Context, symbol string, qty float64) float64 {
	inst, err := c.Instrument(ctx, symbol)
	if err != nil {
		return qty
	}
	return helper.RoundDownToTick(qty, parseFloat(inst.LotSz))
}
