package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"breakout_bot/pkg/logger"
)

// Sender delivers one message to one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// Dispatcher queues messages and fans them out to every sender in the background.
// Send never blocks; messages are dropped when the queue is full.
type Dispatcher struct {
	senders []Sender
	queue   chan string
	timeout time.Duration

	dropped atomic.Int64
	wg      sync.WaitGroup
}

func NewDispatcher(buffer int, timeout time.Duration, senders ...Sender) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &Dispatcher{
		senders: senders,
		queue:   make(chan string, buffer),
		timeout: timeout,
	}
}

func (d *Dispatcher) Send(msg string) {
	select {
	case d.queue <- msg:
	default:
		n := d.dropped.Add(1)
		logger.Warn("notify: queue full, dropped message (total dropped %d)", n)
	}
}

func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Start runs the delivery loop in the background until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Run(ctx)
	}()
}

// Run delivers queued messages until ctx is done, then drains what is left.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case msg := <-d.queue:
			d.deliver(ctx, msg)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

// Wait blocks until the loop started by Start has returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) drain() {
	ctx := context.Background()
	for {
		select {
		case msg := <-d.queue:
			d.deliver(ctx, msg)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg string) {
	for _, s := range d.senders {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		if err := s.Send(sctx, msg); err != nil {
			logger.Error("notify: sender %s failed: %v", s.Name(), err)
		}
		cancel()
	}
}
