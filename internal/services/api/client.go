// Package api is the advisory backend client. Every call settles to a
// Result; transport errors, non-2xx statuses, undecodable bodies and an open
// circuit breaker all become Unavailable and are only logged.
package api

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

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/logging"
)

const DefaultBaseURL = "http://127.0.0.1:5000/api"

// errCallerGone marks calls abandoned by the caller. They settle to
// Unavailable but do not count against the backend in the breaker.
var errCallerGone = errors.New("caller went away")

type Config struct {
	BaseURL string
	Timeout time.Duration

	BreakerFailures int
	BreakerOpenFor  time.Duration

	HTTPClient *http.Client
	Metrics    *Metrics
	Logger     *zap.Logger
}

type Client struct {
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *Metrics
	log     *zap.Logger
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	fails := cfg.BreakerFailures
	if fails < 1 {
		fails = 5
	}
	openFor := cfg.BreakerOpenFor
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	logger := logging.OrNop(cfg.Logger)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "advisory-api",
		Timeout: openFor,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &Client{base: base, http: hc, breaker: breaker, metrics: cfg.Metrics, log: logger}
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Call performs a request and decodes the JSON body into a generic object.
func (c *Client) Call(ctx context.Context, endpoint, method string, payload any) Result[map[string]any] {
	return Fetch[map[string]any](ctx, c, endpoint, method, payload)
}

// Fetch performs a request and decodes the JSON body into T.
func Fetch[T any](ctx context.Context, c *Client, endpoint, method string, payload any) Result[T] {
	if method == "" {
		method = http.MethodGet
	}
	label := endpointLabel(endpoint)
	start := time.Now()

	if err := ctx.Err(); err != nil {
		c.metrics.observe(label, OutcomeCanceled, time.Since(start))
		c.log.Debug("backend call skipped",
			zap.String("endpoint", endpoint), zap.Error(err))
		return Unavailable[T]()
	}

	var out T
	_, err := c.breaker.Execute(func() (interface{}, error) {
		err := c.do(ctx, endpoint, method, payload, &out)
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errCallerGone, err)
		}
		return nil, err
	})
	if err != nil {
		outcome := OutcomeError
		switch {
		case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
			outcome = OutcomeBreakerOpen
		case errors.Is(err, errCallerGone):
			outcome = OutcomeCanceled
		}
		c.metrics.observe(label, outcome, time.Since(start))
		c.log.Warn("backend call failed",
			zap.String("endpoint", endpoint), zap.String("method", method), zap.Error(err))
		return Unavailable[T]()
	}
	c.metrics.observe(label, OutcomeOK, time.Since(start))
	return Success(out)
}

func (c *Client) do(ctx context.Context, endpoint, method string, payload, out any) error {
	var body io.Reader
	if payload != nil && method != http.MethodGet {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API %s failed: %d", endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode error: %w", err)
	}
	return nil
}

// endpointLabel drops the query so metric cardinality stays bounded.
func endpointLabel(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}
