package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

type HealthStatus struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Date    string `json:"date"`
}

// HealthCheck probes the API. GET /health-check
func (c *Client) HealthCheck(ctx context.Context) (HealthStatus, error) {
	_, body, err := c.do(ctx, http.MethodGet, "/health-check", nil, nil)
	if err != nil {
		return HealthStatus{}, err
	}

	var status HealthStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return HealthStatus{}, &Error{Kind: ErrDecode, Status: http.StatusOK, Message: "malformed health response", Err: err}
	}
	if !status.Success {
		return status, &Error{Kind: ErrServer, Status: http.StatusOK, Message: "api reported unhealthy: " + status.Message}
	}

	return status, nil
}

// WaitHealthy polls HealthCheck with exponential backoff until the API
// reports healthy or maxElapsed passes. Client errors other than transport
// and server failures stop the wait immediately.
func (c *Client) WaitHealthy(ctx context.Context, maxElapsed time.Duration) (HealthStatus, error) {
	attempt := 0
	op := func() (HealthStatus, error) {
		attempt++
		status, err := c.HealthCheck(ctx)
		if err == nil {
			return status, nil
		}
		if errors.Is(err, ErrTransport) || errors.Is(err, ErrServer) {
			log.Debug().Err(err).Int("attempt", attempt).Msg("api not ready")
			return status, err
		}
		return status, backoff.Permanent(err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 250 * time.Millisecond
	eb.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxElapsedTime(maxElapsed),
	)
}
