package service

import (
	"context"
	"sync"
	"time"

	"breakout_bot/internal/models"
)

// Cache stores the latest mark price per symbol with the time it was observed.
type Cache interface {
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, symbol string) (float64, time.Time, error)
}

type quote struct {
	price float64
	ts    time.Time
}

type MemoryCache struct {
	mu     sync.RWMutex
	quotes map[string]quote
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{quotes: make(map[string]quote)}
}

func (c *MemoryCache) SetPrice(_ context.Context, symbol string, price float64, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.quotes[symbol]; ok && prev.ts.After(ts) {
		return nil
	}
	c.quotes[symbol] = quote{price: price, ts: ts}
	return nil
}

func (c *MemoryCache) GetPrice(_ context.Context, symbol string) (float64, time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[symbol]
	if !ok {
		return 0, time.Time{}, models.ErrNotFound
	}
	return q.price, q.ts, nil
}
