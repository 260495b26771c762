package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/glamhair/patglam-agent/pkg/circuitbreaker"
	"github.com/glamhair/patglam-agent/pkg/metrics"
	"github.com/glamhair/patglam-agent/pkg/retry"
)

// HTTPClient wraps http.Client with retry and circuit breaker
type HTTPClient struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	serviceName    string
	bearerToken    string
}

// NewHTTPClient creates a new HTTP client with retry and circuit breaker
func NewHTTPClient(serviceName string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		circuitBreaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
		serviceName:    serviceName,
	}
}

// WithBearerToken sets an Authorization header for every request.
func (c *HTTPClient) WithBearerToken(token string) *HTTPClient {
	c.bearerToken = token
	return c
}

// Post performs a POST request with retry and circuit breaker
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	start := time.Now()
	var resp *http.Response

	err := c.circuitBreaker.Execute(ctx, func() error {
		return retry.Do(ctx, retry.DefaultConfig(), func() error {
			jsonData, marshalErr := json.Marshal(body)
			if marshalErr != nil {
				return marshalErr
			}

			req, reqErr := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
			if reqErr != nil {
				return reqErr
			}
			req.Header.Set("Content-Type", "application/json")
			if c.bearerToken != "" {
				req.Header.Set("Authorization", "Bearer "+c.bearerToken)
			}

			resp, reqErr = c.client.Do(req)
			if reqErr != nil {
				return reqErr
			}

			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return fmt.Errorf("server error: %d", resp.StatusCode)
			}

			return nil
		})
	})

	success := err == nil && resp != nil && resp.StatusCode < 400
	metrics.RecordServiceCall(c.serviceName, success, time.Since(start))

	return resp, err
}
