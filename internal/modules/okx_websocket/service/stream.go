package service

import (
	"context"
	"sync"
	"time"

	"breakout_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const (
	channelMarkPrice = "mark-price"
	pingEvery        = 20 * time.Second
	reconnectDelay   = time.Second
)

type PriceSink interface {
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
}

type StatusSink interface {
	SetWSConnected(v bool)
	TouchTick(t time.Time)
}

// Stream subscribes to OKX public mark-price updates and writes them to the sink.
type Stream struct {
	url     string
	symbols []string
	dialer  *websocket.Dialer
	sink    PriceSink
	status  StatusSink

	wg sync.WaitGroup
}

func NewStream(url string, symbols []string, sink PriceSink, status StatusSink) *Stream {
	return &Stream{
		url:     url,
		symbols: symbols,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		sink:    sink,
		status:  status,
	}
}

func (s *Stream) Start(ctx context.Context) {
	if len(s.symbols) == 0 {
		logger.Warn("ws: no symbols, mark-price stream not started")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Wait blocks until the stream goroutine exits after ctx is cancelled.
func (s *Stream) Wait() { s.wg.Wait() }

func (s *Stream) run(ctx context.Context) {
	for {
		if err := s.session(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("ws: %s session ended: %v", channelMarkPrice, err)
		}
		s.setConnected(false)

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *Stream) session(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	args := make([]map[string]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		args = append(args, map[string]string{"channel": channelMarkPrice, "instId": sym})
	}
	if err := conn.WriteJSON(map[string]any{"op": "subscribe", "args": args}); err != nil {
		return err
	}
	logger.Info("ws: subscribed %s for %d symbols", channelMarkPrice, len(s.symbols))
	s.setConnected(true)

	// OKX drops idle connections after 30s without a ping
	var writeMu sync.Mutex
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		t := time.NewTicker(pingEvery)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				writeMu.Lock()
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				writeMu.Unlock()
				_ = conn.Close()
				return
			case <-t.C:
				writeMu.Lock()
				_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
				writeMu.Unlock()
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ticks, err := parseMarkPrices(msg)
		if err != nil {
			logger.Warn("ws: bad frame: %v", err)
			continue
		}
		for _, t := range ticks {
			if err := s.sink.SetPrice(ctx, t.Symbol, t.Price, t.Time); err != nil {
				logger.Warn("ws: store price %s: %v", t.Symbol, err)
				continue
			}
			if s.status != nil {
				s.status.TouchTick(t.Time)
			}
		}
	}
}

func (s *Stream) setConnected(v bool) {
	if s.status != nil {
		s.status.SetWSConnected(v)
	}
}

type markTick struct {
	Symbol string
	Price  float64
	Time   time.Time
}

type markFrame struct {
	Event string `json:"event"`
	Msg   string `json:"msg"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []struct {
		InstID string `json:"instId"`
		MarkPx string `json:"markPx"`
		Ts     string `json:"ts"`
	} `json:"data"`
}

// parseMarkPrices returns nothing for pongs, subscribe acks and other channels.
func parseMarkPrices(msg []byte) ([]markTick, error) {
	if string(msg) == "pong" {
		return nil, nil
	}

	var f markFrame
	if err := sonic.Unmarshal(msg, &f); err != nil {
		return nil, err
	}
	if f.Event == "error" {
		logger.Error("ws: server error: %s", f.Msg)
		return nil, nil
	}
	if f.Arg.Channel != channelMarkPrice || len(f.Data) == 0 {
		return nil, nil
	}

	out := make([]markTick, 0, len(f.Data))
	for _, d := range f.Data {
		px := parseFloat(d.MarkPx)
		if px <= 0 {
			continue
		}
		tsMs, _ := parseInt(d.Ts)
		ts := time.Now()
		if tsMs > 0 {
			ts = time.UnixMilli(tsMs)
		}
		sym := d.InstID
		if sym == "" {
			sym = f.Arg.InstID
		}
		out = append(out, markTick{Symbol: sym, Price: px, Time: ts})
	}
	return out, nil
}
