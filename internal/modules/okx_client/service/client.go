package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"breakout_bot/internal/models"
	"breakout_bot/internal/modules/config"

	"github.com/bytedance/sonic"
)

// Client talks to the OKX v5 REST API.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	passph    string
	simulated bool
	tdMode    string

	http *http.Client

	metaMu sync.RWMutex
	meta   map[string]models.Instrument
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.OKX.BaseURL, "/"),
		apiKey:    cfg.OKX.APIKey,
		apiSecret: cfg.OKX.APISecret,
		passph:    cfg.OKX.Passphrase,
		simulated: cfg.OKX.Simulated,
		tdMode:    cfg.OKX.TdMode,
		http:      &http.Client{Timeout: cfg.Scheduler.CallTimeout},
		meta:      make(map[string]models.Instrument),
	}
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) sign(ts, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(ts + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// do sends the request and decodes the "data" array of a code=0 response into out.
// For non-zero codes the raw envelope is returned together with an error so callers
// can inspect per-item sCode values.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, signed bool, out any) (*envelope, error) {
	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = sonic.Marshal(body); err != nil {
			return nil, fmt.Errorf("%s marshal: %w", path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s new request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if signed {
		ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
		req.Header.Set("OK-ACCESS-KEY", c.apiKey)
		req.Header.Set("OK-ACCESS-SIGN", c.sign(ts, method, requestPath, string(payload)))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.passph)
	}
	if c.simulated {
		req.Header.Set("x-simulated-trading", "1")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s do: %w", path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("%s http %d: %s", path, resp.StatusCode, string(data))
		}
		return nil, fmt.Errorf("%s decode: %w; body=%s", path, err, string(data))
	}
	if env.Code != "0" {
		return &env, fmt.Errorf("%s error: code=%s msg=%s", path, env.Code, env.Msg)
	}
	if resp.StatusCode/100 != 2 {
		return &env, fmt.Errorf("%s http %d: %s", path, resp.StatusCode, string(data))
	}

	if out != nil && len(env.Data) > 0 {
		if err := sonic.Unmarshal(env.Data, out); err != nil {
			return &env, fmt.Errorf("%s decode data: %w", path, err)
		}
	}
	return &env, nil
}
