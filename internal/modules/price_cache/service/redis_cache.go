package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"breakout_bot/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps prices in hashes "price:{symbol}" with fields price and ts (unix nanos).
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func priceKey(symbol string) string {
	return "price:" + symbol
}

func (c *RedisCache) SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error {
	fields := map[string]any{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := c.rdb.HSet(ctx, priceKey(symbol), fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", symbol, err)
	}
	return nil
}

func (c *RedisCache) GetPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	vals, err := c.rdb.HGetAll(ctx, priceKey(symbol)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", symbol, err)
	}
	priceStr, ok1 := vals["price"]
	tsStr, ok2 := vals["ts"]
	if !ok1 || !ok2 {
		return 0, time.Time{}, models.ErrNotFound
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s: %w", symbol, err)
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", symbol, err)
	}
	return price, time.Unix(0, tsNano), nil
}
