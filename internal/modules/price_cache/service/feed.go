package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"breakout_bot/internal/models"
	"breakout_bot/pkg/logger"
)

type MarkPriceFetcher interface {
	GetMarkPrice(ctx context.Context, symbol string) (float64, error)
}

// Feed serves mark prices from the cache while fresh and falls back to REST.
type Feed struct {
	cache  Cache
	rest   MarkPriceFetcher
	maxAge time.Duration
	now    func() time.Time
}

func NewFeed(cache Cache, rest MarkPriceFetcher, maxAge time.Duration) *Feed {
	return &Feed{cache: cache, rest: rest, maxAge: maxAge, now: time.Now}
}

func (f *Feed) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	px, ts, err := f.cache.GetPrice(ctx, symbol)
	switch {
	case err == nil && px > 0 && f.now().Sub(ts) <= f.maxAge:
		return px, nil
	case err != nil && !errors.Is(err, models.ErrNotFound):
		logger.Warn("price feed: cache read %s: %v", symbol, err)
	}

	px, err = f.rest.GetMarkPrice(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("Feed.GetMarkPrice %s: %w", symbol, err)
	}
	if err := f.cache.SetPrice(ctx, symbol, px, f.now()); err != nil {
		logger.Warn("price feed: cache write %s: %v", symbol, err)
	}
	return px, nil
}
