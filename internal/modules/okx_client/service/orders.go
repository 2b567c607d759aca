package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"breakout_bot/internal/models"

	"github.com/bytedance/sonic"
)

// PlaceEntryOrder sends a market order opening side.
func (c *Client) PlaceEntryOrder(ctx context.Context, symbol string, side models.Side, qty float64, clientID string) (string, error) {
	return c.placeMarket(ctx, "PlaceEntryOrder", symbol, okxSide(side), qty, clientID, false)
}

// PlaceExitOrder sends a reduce-only market order flattening a position of side.
func (c *Client) PlaceExitOrder(ctx context.Context, symbol string, side models.Side, qty float64, clientID string) (string, error) {
	return c.placeMarket(ctx, "PlaceExitOrder", symbol, okxSide(side.Opposite()), qty, clientID, true)
}

func (c *Client) placeMarket(ctx context.Context, op, symbol, side string, qty float64, clientID string, reduceOnly bool) (string, error) {
	qty = c.roundLot(ctx, symbol, qty)
	if qty <= 0 {
		return "", fmt.Errorf("%s %s: %w: size <= 0 after lot rounding", op, symbol, models.ErrOrderRejected)
	}

	body := map[string]any{
		"instId":  symbol,
		"tdMode":  c.tdMode,
		"side":    side,
		"ordType": "market",
		"sz":      formatSize(qty),
	}
	if clientID != "" {
		body["clOrdId"] = clientID
	}
	if reduceOnly {
		body["reduceOnly"] = true
	}

	var acks []orderAck
	env, err := c.do(ctx, http.MethodPost, "/api/v5/trade/order", nil, body, true, &acks)
	if err != nil {
		if env != nil && len(env.Data) > 0 {
			var rejected []orderAck
			if uErr := sonic.Unmarshal(env.Data, &rejected); uErr == nil && len(rejected) > 0 && rejected[0].SCode != "0" {
				return "", orderError(op+" "+symbol, rejected[0])
			}
		}
		return "", fmt.Errorf("%s %s: %w", op, symbol, err)
	}
	if len(acks) == 0 {
		return "", fmt.Errorf("%s %s: %w", op, symbol, errors.New("empty order ack"))
	}
	if acks[0].SCode != "0" {
		return "", orderError(op+" "+symbol, acks[0])
	}
	return acks[0].OrdID, nil
}
