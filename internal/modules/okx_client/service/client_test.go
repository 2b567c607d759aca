package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"breakout_bot/internal/models"
	"breakout_bot/internal/modules/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.OKX.BaseURL = srv.URL
	cfg.OKX.APIKey = "key"
	cfg.OKX.APISecret = "secret"
	cfg.OKX.Passphrase = "pass"
	cfg.OKX.Simulated = true
	cfg.OKX.TdMode = "cross"
	cfg.Scheduler.CallTimeout = 2 * time.Second
	return NewClient(cfg)
}

func instrumentsHandler(w http.ResponseWriter) {
	fmt.Fprint(w, `{"code":"0","msg":"","data":[{"instId":"BTC-USDT-SWAP","tickSz":"0.1","lotSz":"0.01","minSz":"0.01","ctVal":"0.01","state":"live"}]}`)
}

func TestGetCandlesAscendingConfirmedInRange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v5/market/history-candles" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("bar"); got != "1H" {
			t.Errorf("bar = %q, want 1H", got)
		}
		// newest first; the newest bar is unconfirmed
		fmt.Fprint(w, `{"code":"0","msg":"","data":[
			["7200000","3","4","2","3.5","10","0","0","0"],
			["3600000","2","3","1","2.5","10","0","0","1"],
			["0","1","2","0.5","1.5","10","0","0","1"]
		]}`)
	})

	got, err := c.GetCandles(context.Background(), "BTC-USDT-SWAP", "1h", time.UnixMilli(0), time.UnixMilli(7200000))
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Time.Before(got[1].Time) {
		t.Fatalf("candles not ascending: %v, %v", got[0].Time, got[1].Time)
	}
	if got[1].Close != 2.5 || got[1].Symbol != "BTC-USDT-SWAP" {
		t.Fatalf("unexpected candle %+v", got[1])
	}
}

func TestGetCandlesUnsupportedTimeframe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := c.GetCandles(context.Background(), "BTC-USDT-SWAP", "7m", time.Time{}, time.Now()); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetMarkPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("instId") != "ETH-USDT-SWAP" {
			t.Errorf("instId = %q", r.URL.Query().Get("instId"))
		}
		fmt.Fprint(w, `{"code":"0","msg":"","data":[{"instId":"ETH-USDT-SWAP","markPx":"2500.5","ts":"1"}]}`)
	})
	px, err := c.GetMarkPrice(context.Background(), "ETH-USDT-SWAP")
	if err != nil {
		t.Fatalf("GetMarkPrice: %v", err)
	}
	if px != 2500.5 {
		t.Fatalf("px = %v", px)
	}
}

func TestPlaceEntryOrderSignsAndRoundsLot(t *testing.T) {
	var body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v5/public/instruments":
			instrumentsHandler(w)
		case "/api/v5/trade/order":
			for _, h := range []string{"OK-ACCESS-KEY", "OK-ACCESS-SIGN", "OK-ACCESS-TIMESTAMP", "OK-ACCESS-PASSPHRASE"} {
				if r.Header.Get(h) == "" {
					t.Errorf("missing header %s", h)
				}
			}
			if r.Header.Get("x-simulated-trading") != "1" {
				t.Error("missing simulated header")
			}
			b, _ := io.ReadAll(r.Body)
			body = string(b)
			fmt.Fprint(w, `{"code":"0","msg":"","data":[{"ordId":"42","clOrdId":"abc","sCode":"0","sMsg":""}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	id, err := c.PlaceEntryOrder(context.Background(), "BTC-USDT-SWAP", models.SideSell, 1.237, "abc")
	if err != nil {
		t.Fatalf("PlaceEntryOrder: %v", err)
	}
	if id != "42" {
		t.Fatalf("order id = %q", id)
	}
	for _, want := range []string{`"side":"sell"`, `"sz":"1.23"`, `"clOrdId":"abc"`, `"ordType":"market"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
	if strings.Contains(body, "reduceOnly") {
		t.Errorf("entry order must not be reduce-only: %s", body)
	}
}

func TestPlaceExitOrderIsReduceOnlyOpposite(t *testing.T) {
	var body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v5/public/instruments" {
			instrumentsHandler(w)
			return
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		fmt.Fprint(w, `{"code":"0","msg":"","data":[{"ordId":"7","sCode":"0"}]}`)
	})

	if _, err := c.PlaceExitOrder(context.Background(), "BTC-USDT-SWAP", models.SideBuy, 1, "x"); err != nil {
		t.Fatalf("PlaceExitOrder: %v", err)
	}
	if !strings.Contains(body, `"side":"sell"`) || !strings.Contains(body, `"reduceOnly":true`) {
		t.Fatalf("unexpected exit body %s", body)
	}
}

func TestPlaceOrderErrorMapping(t *testing.T) {
	cases := []struct {
		sCode string
		want  error
	}{
		{"51008", models.ErrInsufficientBalance},
		{"51016", models.ErrDuplicateOrder},
		{"51000", models.ErrOrderRejected},
	}
	for _, tc := range cases {
		t.Run(tc.sCode, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/api/v5/public/instruments" {
					instrumentsHandler(w)
					return
				}
				fmt.Fprintf(w, `{"code":"1","msg":"All operations failed","data":[{"ordId":"","sCode":"%s","sMsg":"nope"}]}`, tc.sCode)
			})
			_, err := c.PlaceEntryOrder(context.Background(), "BTC-USDT-SWAP", models.SideBuy, 1, "id")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPositionsNetAndHedgeModes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0","msg":"","data":[
			{"instId":"BTC-USDT-SWAP","posSide":"net","pos":"-3","avgPx":"100"},
			{"instId":"ETH-USDT-SWAP","posSide":"long","pos":"2","avgPx":"50"},
			{"instId":"SOL-USDT-SWAP","posSide":"net","pos":"0","avgPx":""}
		]}`)
	})

	ps, err := c.OpenPositions(context.Background())
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	if len(ps) != 2 {
		t.Fatalf("len = %d, want 2", len(ps))
	}
	if ps[0].Side != models.SideSell || ps[0].Size != 3 {
		t.Fatalf("unexpected net position %+v", ps[0])
	}
	if ps[1].Side != models.SideBuy || ps[1].Size != 2 {
		t.Fatalf("unexpected hedge position %+v", ps[1])
	}
}

func TestGetOpenPositionSizeFlat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0","msg":"","data":[]}`)
	})
	size, err := c.GetOpenPositionSize(context.Background(), "BTC-USDT-SWAP")
	if err != nil {
		t.Fatalf("GetOpenPositionSize: %v", err)
	}
	if size != 0 {
		t.Fatalf("size = %v, want 0", size)
	}
}

func TestAPIErrorSurfaces(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"code":"50113","msg":"Invalid Sign","data":[]}`)
	})
	if _, err := c.OpenPositions(context.Background()); err == nil || !strings.Contains(err.Error(), "50113") {
		t.Fatalf("err = %v", err)
	}
}
