package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"breakout_bot/internal/models"
)

type fakeREST struct {
	px    float64
	err   error
	calls int
}

func (f *fakeREST) GetMarkPrice(context.Context, string) (float64, error) {
	f.calls++
	return f.px, f.err
}

func TestMemoryCacheKeepsNewest(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	now := time.Now()

	if _, _, err := c.GetPrice(ctx, "BTC"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	_ = c.SetPrice(ctx, "BTC", 100, now)
	_ = c.SetPrice(ctx, "BTC", 90, now.Add(-time.Second))

	px, ts, err := c.GetPrice(ctx, "BTC")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if px != 100 || !ts.Equal(now) {
		t.Fatalf("got %v at %v", px, ts)
	}
}

func TestFeedUsesFreshCache(t *testing.T) {
	cache := NewMemoryCache()
	rest := &fakeREST{px: 1}
	f := NewFeed(cache, rest, 10*time.Second)
	_ = cache.SetPrice(context.Background(), "BTC", 105, time.Now())

	px, err := f.GetMarkPrice(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("GetMarkPrice: %v", err)
	}
	if px != 105 || rest.calls != 0 {
		t.Fatalf("px = %v, rest calls = %d", px, rest.calls)
	}
}

func TestFeedFallsBackWhenStale(t *testing.T) {
	cache := NewMemoryCache()
	rest := &fakeREST{px: 110}
	f := NewFeed(cache, rest, 10*time.Second)
	_ = cache.SetPrice(context.Background(), "BTC", 105, time.Now().Add(-time.Minute))

	px, err := f.GetMarkPrice(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("GetMarkPrice: %v", err)
	}
	if px != 110 || rest.calls != 1 {
		t.Fatalf("px = %v, rest calls = %d", px, rest.calls)
	}

	// the REST value is cached for the next read
	if px, _ = f.GetMarkPrice(context.Background(), "BTC"); px != 110 || rest.calls != 1 {
		t.Fatalf("second read px = %v, rest calls = %d", px, rest.calls)
	}
}

func TestFeedRESTError(t *testing.T) {
	f := NewFeed(NewMemoryCache(), &fakeREST{err: errors.New("down")}, time.Second)
	if _, err := f.GetMarkPrice(context.Background(), "ETH"); err == nil {
		t.Fatal("expected error")
	}
}
