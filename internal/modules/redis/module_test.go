package redis

import (
	"context"
	"testing"
	"time"

	"breakout_bot/internal/modules/redis/service"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/fx"
)

type fakeShutdowner struct{ calls chan []fx.ShutdownOption }

func (f *fakeShutdowner) Shutdown(opts ...fx.ShutdownOption) error {
	f.calls <- opts
	return nil
}

func TestWatchLeaseShutsDownOnLoss(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := service.New(context.Background(), service.ClientConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	lease := service.NewLease(c, "acc", time.Minute)
	if err := lease.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer lease.Release(context.Background())

	sd := &fakeShutdowner{calls: make(chan []fx.ShutdownOption, 1)}
	stop := make(chan struct{})
	go watchLease(lease, sd, stop)

	mr.Del("lease:acc")
	_ = lease.Refresh(context.Background())

	select {
	case <-sd.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("no shutdown after the lease was lost")
	}
}

func TestWatchLeaseStopsQuietly(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := service.New(context.Background(), service.ClientConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	lease := service.NewLease(c, "acc", time.Minute)
	sd := &fakeShutdowner{calls: make(chan []fx.ShutdownOption, 1)}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		watchLease(lease, sd, stop)
		close(done)
	}()

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not return on stop")
	}
	if len(sd.calls) != 0 {
		t.Fatal("shutdown requested on a normal stop")
	}
}
