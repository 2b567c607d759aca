package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"breakout_bot/internal/models"
)

const (
	candlesPageLimit = 100
	candlesMaxPages  = 30
)

// GetCandles returns confirmed candles with start <= open time <= end in ascending order.
// OKX pages newest-first, so the loop walks backwards with "after".
func (c *Client) GetCandles(ctx context.Context, symbol, resolution string, start, end time.Time) ([]models.Candle, error) {
	bar, err := okxBar(resolution)
	if err != nil {
		return nil, err
	}

	byTs := make(map[int64]models.Candle)
	after := end.Add(time.Millisecond).UnixMilli()
	for page := 0; page < candlesMaxPages; page++ {
		q := url.Values{}
		q.Set("instId", symbol)
		q.Set("bar", bar)
		q.Set("after", strconv.FormatInt(after, 10))
		q.Set("limit", strconv.Itoa(candlesPageLimit))

		var rows [][]string
		if _, err := c.do(ctx, http.MethodGet, "/api/v5/market/history-candles", q, nil, false, &rows); err != nil {
			return nil, fmt.Errorf("GetCandles %s: %w", symbol, err)
		}
		if len(rows) == 0 {
			break
		}

		oldest := after
		for _, row := range rows {
			// [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm]
			if len(row) < 5 {
				continue
			}
			tsMs, err := strconv.ParseInt(row[0], 10, 64)
			if err != nil {
				continue
			}
			if tsMs < oldest {
				oldest = tsMs
			}
			if row[len(row)-1] != "1" && len(row) >= 9 {
				continue
			}
			ts := time.UnixMilli(tsMs).UTC()
			if ts.Before(start) || ts.After(end) {
				continue
			}
			candle := models.Candle{
				Symbol: symbol,
				Time:   ts,
				Open:   parseFloat(row[1]),
				High:   parseFloat(row[2]),
				Low:    parseFloat(row[3]),
				Close:  parseFloat(row[4]),
			}
			if len(row) >= 6 {
				candle.Volume = parseFloat(row[5])
			}
			byTs[tsMs] = candle
		}

		if len(rows) < candlesPageLimit || oldest <= start.UnixMilli() || oldest >= after {
			break
		}
		after = oldest
	}

	out := make([]models.Candle, 0, len(byTs))
	for _, candle := range byTs {
		out = append(out, candle)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}
