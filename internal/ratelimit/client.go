// Package ratelimit provides the shared outbound HTTP client. Every external
// integration (taste graph, content providers) goes through one instance so
// the process-wide request budget actually holds.
package ratelimit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/metrics"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config tunes the request budget and retry policy.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	MaxInFlight       int64
	MaxRetries        int
	RetryBaseDelay    time.Duration
	CallTimeout       time.Duration
}

func (c *Config) applyDefaults() {
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 5
	}
	if c.Burst <= 0 {
		c.Burst = int(math.Ceil(c.RequestsPerSecond))
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 5
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 100 * time.Millisecond
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
}

// Client is the token-bucket-limited HTTP client. Tokens refill continuously
// at RequestsPerSecond up to Burst; a call blocks until a token is available
// or the caller's context expires. The limiter is the only shared mutable
// state in the pipeline and must be created once per process.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	inflight   *semaphore.Weighted
	logger     logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Client. No timeout on the underlying http.Client; deadlines
// come from the per-call context.
func New(cfg Config, log logger.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		inflight:   semaphore.NewWeighted(cfg.MaxInFlight),
		logger:     log.With(map[string]interface{}{"component": "ratelimit"}),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Do executes req under the budget with retries. The request must have
// GetBody set when it carries a body (http.NewRequestWithContext does this
// for bytes.Reader and friends) so attempts can replay it.
//
// Classification: 429 retries then surfaces RATE_LIMITED; 5xx and transport
// errors retry then surface TRANSIENT_UPSTREAM; any other 4xx fails
// immediately with INVALID_REQUEST so bad requests are not amplified.
func (c *Client) Do(ctx context.Context, service string, req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	var lastErr *apperrors.Error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				break
			}
		}

		resp, appErr := c.attempt(ctx, service, req)
		if appErr == nil {
			metrics.ExternalCallsTotal.WithLabelValues(service, "success").Inc()
			return resp, nil
		}

		metrics.ExternalCallsTotal.WithLabelValues(service, string(appErr.Code)).Inc()
		if !appErr.Retryable {
			return nil, appErr
		}
		lastErr = appErr

		c.logger.Warn("retryable upstream failure", map[string]interface{}{
			"service": service,
			"attempt": attempt + 1,
			"code":    string(appErr.Code),
			"details": appErr.Details,
		})
	}

	if lastErr == nil {
		lastErr = apperrors.NewTransientUpstream(service, ctx.Err())
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, service string, req *http.Request) (*http.Response, *apperrors.Error) {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewTransientUpstream(service, fmt.Errorf("token wait: %w", err))
	}
	metrics.RateLimiterWait.Observe(time.Since(waitStart).Seconds())

	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return nil, apperrors.NewTransientUpstream(service, fmt.Errorf("in-flight slot: %w", err))
	}
	defer c.inflight.Release(1)

	attemptReq, err := cloneRequest(ctx, req)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(attemptReq)
	metrics.ExternalCallDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, apperrors.NewTransientUpstream(service, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		drain(resp)
		return nil, apperrors.NewRateLimited(fmt.Sprintf("service: %s, status: %d", service, resp.StatusCode))
	case resp.StatusCode >= 500:
		drain(resp)
		return nil, apperrors.NewTransientUpstream(service, fmt.Errorf("status %d", resp.StatusCode))
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("service: %s, status: %d, body: %s", service, resp.StatusCode, body))
	}
}

// backoff sleeps for base * 2^(attempt-1) plus up to 50% jitter, or returns
// early when ctx expires.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := c.cfg.RetryBaseDelay * time.Duration(1<<(attempt-1))
	c.mu.Lock()
	jitter := time.Duration(c.rng.Int63n(int64(delay)/2 + 1))
	c.mu.Unlock()

	select {
	case <-time.After(delay + jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	out := req.Clone(ctx)
	if req.Body == nil || req.GetBody == nil {
		return out, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replay request body: %w", err)
	}
	out.Body = body
	return out, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

// GetJSON issues a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, service, url string, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperrors.NewInternal(err)
	}
	mergeHeader(req, header)

	resp, doErr := c.Do(ctx, service, req)
	if doErr != nil {
		return doErr
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewTransientUpstream(service, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// PostJSON issues a POST with a JSON body and decodes the JSON response into
// out.
func (c *Client) PostJSON(ctx context.Context, service, url string, header http.Header, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return apperrors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	mergeHeader(req, header)

	resp, doErr := c.Do(ctx, service, req)
	if doErr != nil {
		return doErr
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewTransientUpstream(service, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func mergeHeader(req *http.Request, header http.Header) {
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
}
