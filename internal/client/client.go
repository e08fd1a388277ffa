package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/storefront/internal/logger"
	"github.com/wolfeidau/storefront/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds common client configuration
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Cache    bool
	CacheDir string
	Debug    bool
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080",
		Timeout: 10 * time.Second,
	}
}

// TokenSource supplies the current bearer token, "" when signed out.
type TokenSource interface {
	Token() string
}

// UnauthorizedFunc is invoked for every 401 response before the error is
// returned to the caller.
type UnauthorizedFunc func(ctx context.Context)

// Client is the single gateway to the bookstore REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu           sync.RWMutex
	unauthorized []UnauthorizedFunc
}

// New creates a client for cfg. Every request carries the bearer token
// currently held by tokens.
func New(cfg Config, tokens TokenSource) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	var base http.RoundTripper = http.DefaultTransport
	if cfg.Cache {
		base = NewCachingTransport(cfg.CacheDir, base)
	}

	transport := &authTransport{
		tokens: tokens,
		next:   logger.NewRequestLogger(log.Logger).Wrap(otelhttp.NewTransport(base)),
	}

	log.Debug().
		Str("baseURL", cfg.BaseURL).
		Dur("timeout", cfg.Timeout).
		Bool("cache", cfg.Cache).
		Msg("api client initialized")

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

// OnUnauthorized subscribes fn to 401 responses observed by this client.
func (c *Client) OnUnauthorized(fn UnauthorizedFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unauthorized = append(c.unauthorized, fn)
}

func (c *Client) notifyUnauthorized(ctx context.Context) {
	c.mu.RLock()
	handlers := make([]UnauthorizedFunc, len(c.unauthorized))
	copy(handlers, c.unauthorized)
	c.mu.RUnlock()

	telemetry.GetMetrics().HTTPUnauthorizedTotal.Add(ctx, 1)

	for _, fn := range handlers {
		fn(ctx)
	}
}

// Meta is the pagination block of list responses.
type Meta struct {
	Page     int  `json:"page"`
	Limit    int  `json:"limit"`
	PrevPage *int `json:"prev_page"`
	NextPage *int `json:"next_page"`
}

// Envelope is the response shape shared by every endpoint.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Items []T
	Meta  Meta
}

func pageOf[T any](env Envelope[[]T]) Page[T] {
	p := Page[T]{Items: env.Data}
	if env.Meta != nil {
		p.Meta = *env.Meta
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	return p
}

// doJSON sends payload (if any) as JSON and decodes the response envelope.
func doJSON[T any](ctx context.Context, c *Client, method, path string, query url.Values, payload any) (Envelope[T], error) {
	var env Envelope[T]

	status, body, err := c.do(ctx, method, path, query, payload)
	if err != nil {
		return env, err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		if status == http.StatusNoContent {
			env.Success = true
			return env, nil
		}
		return env, &Error{Kind: ErrDecode, Status: http.StatusOK, Message: "empty response body"}
	}

	if err := json.Unmarshal(body, &env); err != nil {
		return env, &Error{Kind: ErrDecode, Status: http.StatusOK, Message: "malformed response body", Err: err}
	}

	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request was not successful"
		}
		return env, &Error{Kind: ErrValidation, Status: http.StatusOK, Message: msg}
	}

	return env, nil
}

// do performs the request and returns the status and raw body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.GetMetrics().HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("outcome", "transport_error"),
		))
		return 0, nil, &Error{Kind: ErrTransport, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	telemetry.GetMetrics().HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Int("status", resp.StatusCode),
	))

	if resp.StatusCode == http.StatusUnauthorized {
		c.notifyUnauthorized(ctx)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &Error{Kind: ErrTransport, Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, nil, errorFromResponse(resp.StatusCode, body)
	}

	return resp.StatusCode, body, nil
}

func errorFromResponse(status int, body []byte) *Error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)

	msg := strings.TrimSpace(payload.Message)
	if msg == "" {
		msg = strings.TrimSpace(payload.Error)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	return &Error{Kind: kindForStatus(status), Status: status, Message: msg}
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
