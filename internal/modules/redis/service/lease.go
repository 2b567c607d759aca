package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"breakout_bot/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLeaseHeld = errors.New("lease held by another instance")
	ErrLeaseLost = errors.New("lease lost")
)

// value must match the token so one instance never releases or extends another's lease
const (
	releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`
	refreshLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`
)

// Lease keeps a single bot instance trading one account.
type Lease struct {
	rdb   *redis.Client
	key   string
	ttl   time.Duration
	token string

	release *redis.Script
	refresh *redis.Script

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	lost     chan struct{}
	lostOnce sync.Once
}

func NewLease(c *Client, key string, ttl time.Duration) *Lease {
	return &Lease{
		rdb:     c.Underlying(),
		key:     "lease:" + key,
		ttl:     ttl,
		token:   uuid.New().String(),
		release: redis.NewScript(releaseLua),
		refresh: redis.NewScript(refreshLua),
		lost:    make(chan struct{}),
	}
}

func (l *Lease) Token() string { return l.token }

// Lost is closed once another owner is seen on the key; this instance must stop trading.
func (l *Lease) Lost() <-chan struct{} { return l.lost }

func (l *Lease) markLost() {
	l.lostOnce.Do(func() { close(l.lost) })
}

// Acquire takes the lease and keeps extending it every ttl/3 until Release.
func (l *Lease) Acquire(ctx context.Context) error {
	ok, err := l.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("Lease.Acquire %s: %w", l.key, err)
	}
	if !ok {
		return fmt.Errorf("Lease.Acquire %s: %w", l.key, ErrLeaseHeld)
	}

	kctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l.mu.Lock()
	l.cancel = cancel
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	go l.keepAlive(kctx, done)
	return nil
}

func (l *Lease) Refresh(ctx context.Context) error {
	n, err := l.refresh.Run(ctx, l.rdb, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("Lease.Refresh %s: %w", l.key, err)
	}
	if n == 0 {
		l.markLost()
		return fmt.Errorf("Lease.Refresh %s: %w", l.key, ErrLeaseLost)
	}
	return nil
}

func (l *Lease) keepAlive(ctx context.Context, done chan struct{}) {
	defer close(done)

	t := time.NewTicker(l.ttl / 3)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := l.Refresh(ctx); err != nil {
				if errors.Is(err, ErrLeaseLost) {
					logger.Error("lease: %v", err)
					return
				}
				logger.Warn("lease: refresh failed: %v", err)
			}
		}
	}
}

// Release stops the refresher and deletes the key if still owned. Safe to call twice.
func (l *Lease) Release(ctx context.Context) error {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	if err := l.release.Run(ctx, l.rdb, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("Lease.Release %s: %w", l.key, err)
	}
	return nil
}
