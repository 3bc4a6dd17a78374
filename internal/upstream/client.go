package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"brandgen-go/internal/config"
	"brandgen-go/internal/constants"
	apperrors "brandgen-go/internal/errors"
	mw "brandgen-go/internal/middleware"
	"brandgen-go/internal/monitoring/tracing"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	chatCompletionsPath = "/v1/chat/completions"
	maxErrorBody        = 64 * 1024
	maxCompletionBody   = 8 * 1024 * 1024
)

// Client talks to one OpenAI-compatible chat completions endpoint.
type Client struct {
	provider    string
	model       config.ModelConfig
	cli         *http.Client
	idleTimeout time.Duration
	maxRetries  int
	retryBase   time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the pooled transport, mostly for tests.
func WithHTTPClient(cli *http.Client) Option { return func(c *Client) { c.cli = cli } }

// WithIdleTimeout bounds upstream silence while streaming.
func WithIdleTimeout(d time.Duration) Option { return func(c *Client) { c.idleTimeout = d } }

// WithRetry sets reconnect attempts and the base backoff.
func WithRetry(maxRetries int, base time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryBase = base
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

// New builds a client for provider (used as metric/trace label).
func New(provider string, model config.ModelConfig, tc config.TransportConfig, opts ...Option) *Client {
	tr := &http.Transport{
		Proxy: getProxyFunc(tc.ProxyURL),
		DialContext: (&net.Dialer{
			Timeout:   durationOrDefault(tc.DialTimeoutSec, constants.DefaultDialTimeout),
			KeepAlive: constants.DefaultKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   durationOrDefault(tc.TLSHandshakeTimeoutSec, constants.DefaultTLSHandshakeTimeout),
		ResponseHeaderTimeout: durationOrDefault(tc.ResponseHeaderTimeoutSec, constants.DefaultResponseHeaderTimeout),
		ExpectContinueTimeout: constants.DefaultExpectContinueTimeout,
		MaxIdleConns:          constants.BaseMaxIdleConns,
		MaxIdleConnsPerHost:   constants.BaseMaxIdleConnsPerHost,
		IdleConnTimeout:       constants.BaseIdleConnTimeout,
	}
	c := &Client{
		provider:    provider,
		model:       model,
		cli:         &http.Client{Transport: tr},
		idleTimeout: constants.UpstreamIdleTimeout,
		maxRetries:  tc.MaxRetries,
		retryBase:   time.Duration(tc.RetryIntervalMs) * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getProxyFunc returns appropriate proxy function based on configuration
func getProxyFunc(proxyURL string) func(*http.Request) (*url.URL, error) {
	if proxyURL != "" {
		if parsedURL, err := url.Parse(proxyURL); err == nil {
			return http.ProxyURL(parsedURL)
		}
	}
	return http.ProxyFromEnvironment
}

func (c *Client) Provider() string { return c.provider }

// CloseIdleConnections releases pooled connections of a replaced client.
func (c *Client) CloseIdleConnections() { c.cli.CloseIdleConnections() }

// Model returns the upstream model id sent in payloads.
func (c *Client) Model() string { return c.model.Model }

// Stream opens a streaming completion. On success the caller owns resp.Body,
// which is already wrapped with the idle timeout.
func (c *Client) Stream(ctx context.Context, req ChatRequest) (*http.Response, error) {
	payload, err := c.buildPayload(req, true)
	if err != nil {
		return nil, err
	}
	resp, err := c.postJSON(ctx, payload, true)
	if err != nil {
		return nil, err
	}
	resp.Body = NewIdleTimeoutBody(resp.Body, c.idleTimeout)
	return resp, nil
}

// Complete performs a non-streamed completion and returns the message text.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	payload, err := c.buildPayload(req, false)
	if err != nil {
		return "", err
	}
	resp, err := c.postJSON(ctx, payload, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCompletionBody))
	if err != nil {
		return "", apperrors.MapNetworkError(err)
	}
	text, ok := OpenAIMessageAdapter{}.ExtractText(body)
	if !ok {
		return "", apperrors.New(http.StatusBadGateway, "empty_completion", "server_error", "upstream returned no message content")
	}
	return text, nil
}

func (c *Client) buildPayload(req ChatRequest, stream bool) ([]byte, error) {
	payload := []byte(`{}`)
	var err error
	if payload, err = sjson.SetBytes(payload, "model", c.model.Model); err != nil {
		return nil, fmt.Errorf("build payload: %w", err)
	}
	msgs := req.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	if payload, err = sjson.SetBytes(payload, "messages", msgs); err != nil {
		return nil, fmt.Errorf("build payload: %w", err)
	}
	keys := make([]string, 0, len(req.Extra))
	for k := range req.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "model" || k == "messages" || k == "stream" {
			continue
		}
		if payload, err = sjson.SetBytes(payload, k, req.Extra[k]); err != nil {
			return nil, fmt.Errorf("build payload field %s: %w", k, err)
		}
	}
	if payload, err = sjson.SetBytes(payload, "stream", stream); err != nil {
		return nil, fmt.Errorf("build payload: %w", err)
	}
	return payload, nil
}

// postJSON sends the payload, retrying connection failures and retryable
// statuses. The returned response is 2xx and its body is open.
func (c *Client) postJSON(ctx context.Context, payload []byte, stream bool) (*http.Response, error) {
	endpoint := strings.TrimRight(c.model.BaseURL, "/") + chatCompletionsPath
	ctx, span := tracing.StartSpan(ctx, "upstream", "Upstream.PostJSON",
		trace.WithAttributes(
			attribute.String("upstream.provider", c.provider),
			attribute.String("upstream.model", c.model.Model),
			attribute.Bool("upstream.stream", stream),
		))
	var finalErr error
	defer func() { tracing.EndSpan(span, finalErr) }()

	for attempt := 0; ; attempt++ {
		resp, err := c.doAttempt(ctx, endpoint, payload, stream)
		if err == nil {
			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode), attribute.Int("upstream.retries", attempt))
			return resp, nil
		}
		apiErr, _ := apperrors.As(err)
		retry := ctx.Err() == nil && attempt < c.maxRetries && apiErr != nil && apiErr.IsRetryable()
		if !retry {
			finalErr = err
			return nil, err
		}
		wait := c.nextBackoff(attempt)
		if d, ok := apiErr.Details["retry_after"].(time.Duration); ok && d > 0 && d < 30*time.Second {
			wait = d
		}
		log.WithFields(log.Fields{
			"provider": c.provider,
			"attempt":  attempt + 1,
			"code":     apiErr.Code,
			"wait_ms":  wait.Milliseconds(),
		}).Warn("retrying upstream request")
		select {
		case <-ctx.Done():
			finalErr = apperrors.MapNetworkError(ctx.Err())
			return nil, finalErr
		case <-time.After(wait):
		}
	}
}

func (c *Client) doAttempt(ctx context.Context, endpoint string, payload []byte, stream bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.New(http.StatusInternalServerError, "invalid_request", "server_error", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.model.APIKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := c.cli.Do(req)
	if err != nil {
		mw.RecordUpstream(c.provider, time.Since(start), 0, true)
		return nil, apperrors.MapNetworkError(err)
	}
	mw.RecordUpstream(c.provider, time.Since(start), resp.StatusCode, false)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	apiErr := apperrors.MapHTTPError(resp.StatusCode, body)
	if d, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
		apiErr.WithDetails(map[string]interface{}{"retry_after": d})
	}
	return nil, apiErr
}

func (c *Client) nextBackoff(attempt int) time.Duration {
	base := float64(c.retryBase)
	if base <= 0 {
		base = float64(500 * time.Millisecond)
	}
	dur := base * math.Pow(2, float64(attempt))
	if max := float64(8 * time.Second); dur > max {
		dur = max
	}
	jitter := 0.5 + rand.Float64()
	return time.Duration(dur * jitter)
}

func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
