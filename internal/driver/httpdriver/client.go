// Package httpdriver talks to a browser-automation sidecar over JSON/HTTP.
//
// The sidecar exposes two endpoints:
//
//	POST /probe   {"locator":{...}}             -> {"text":"..."}
//	POST /perform {"locator":{...},"op":{...}}  -> {}
//
// Errors are reported as a non-2xx status with {"error":"..."}; status 404
// means the locator matched nothing.
package httpdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"attendbot/internal/driver"
	logx "attendbot/pkg/logx"
)

type Config struct {
	Endpoint     string
	Timeout      time.Duration
	PollInterval time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

var _ driver.Driver = (*Client)(nil)

func New(cfg Config, log logx.Logger) (*Client, error) {
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if cfg.Endpoint == "" {
		return nil, errors.New("driver endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With(logx.String("comp", "driver")),
	}, nil
}

type probeRequest struct {
	Locator driver.Locator `json:"locator"`
}

type probeResponse struct {
	Text string `json:"text"`
}

type performRequest struct {
	Locator driver.Locator `json:"locator"`
	Op      driver.Op      `json:"op"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) Probe(ctx context.Context, loc driver.Locator) (string, error) {
	var out probeResponse
	if err := c.post(ctx, "/probe", probeRequest{Locator: loc}, &out); err != nil {
		return "", fmt.Errorf("probe %s: %w", loc, err)
	}
	c.log.Debug("probed", logx.String("locator", loc.String()), logx.String("text", out.Text))
	return out.Text, nil
}

func (c *Client) Perform(ctx context.Context, loc driver.Locator, op driver.Op) error {
	if err := op.Validate(); err != nil {
		return err
	}
	if err := c.post(ctx, "/perform", performRequest{Locator: loc, Op: op}, nil); err != nil {
		return fmt.Errorf("%s %s: %w", op.Kind, loc, err)
	}
	c.log.Debug("performed", logx.String("locator", loc.String()), logx.String("op", string(op.Kind)))
	return nil
}

func (c *Client) AwaitCondition(ctx context.Context, loc driver.Locator, pred func(string) bool, timeout time.Duration) error {
	return driver.PollCondition(ctx, func(ctx context.Context) (string, error) {
		return c.Probe(ctx, loc)
	}, pred, timeout, c.cfg.PollInterval)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		_ = json.Unmarshal(raw, &er)
		msg := strings.TrimSpace(er.Error)
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", driver.ErrNotFound, msg)
		}
		return fmt.Errorf("sidecar %s: %s", resp.Status, msg)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
