// Package client is a Go client for the Cronos compliance API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

const Version = "0.1.0"

// Logger receives debug output from the client.
type Logger interface {
	Debugf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// Client talks to /api/v1. Every call is a GET and is retried on network
// errors, 429 and 5xx responses.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	token        string
	tenantHeader string
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	alerts     *AlertsClient
	alertsOnce sync.Once
	agenda     *AgendaClient
	agendaOnce sync.Once
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cronos: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, e.Message, e.RequestID)
}

func (e *APIError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }
func (e *APIError) IsForbidden() bool    { return e.StatusCode == http.StatusForbidden }
func (e *APIError) IsValidation() bool   { return e.StatusCode == http.StatusBadRequest }
func (e *APIError) IsServerError() bool  { return e.StatusCode >= 500 && e.StatusCode < 600 }

// ErrInvalidConfig is returned by NewClient for an unusable base URL or token.
var ErrInvalidConfig = fmt.Errorf("cronos: invalid client configuration")

// NewClient builds a client for baseURL authenticating with a bearer token.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" || token == "" {
		return nil, ErrInvalidConfig
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid baseURL: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: baseURL scheme must be http or https", ErrInvalidConfig)
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		token:        token,
		tenantHeader: "X-Tenant-ID",
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		userAgent:    "cronos-go-client/" + Version,
		logger:       noopLogger{},
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Alerts() *AlertsClient {
	c.alertsOnce.Do(func() { c.alerts = &AlertsClient{client: c} })
	return c.alerts
}

func (c *Client) Agenda() *AgendaClient {
	c.agendaOnce.Do(func() { c.agenda = &AgendaClient{client: c} })
	return c.agenda
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWaitMin
	b.MaxInterval = c.retryWaitMax
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retryMax)), ctx)
}

// get fetches path with query, scoped to tenant when it is non-empty, and
// decodes the body into result.
func (c *Client) get(ctx context.Context, path string, query url.Values, tenant string, result interface{}) error {
	full := c.baseURL + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}

	op := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		requestID := uuid.NewString()
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)
		if tenant != "" {
			req.Header.Set(c.tenantHeader, tenant)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Errorf("GET %s failed: %v", path, err)
			return nil, err
		}
		defer resp.Body.Close()
		c.logger.Debugf("GET %s %d (%v)", path, resp.StatusCode, time.Since(start))

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 400 {
			return body, nil
		}

		apiErr := decodeError(resp.StatusCode, body, requestID)
		if resp.StatusCode == http.StatusTooManyRequests || apiErr.IsServerError() {
			return nil, apiErr
		}
		return nil, backoff.Permanent(apiErr)
	}

	body, err := backoff.RetryWithData[[]byte](op, c.newBackOff(ctx))
	if err != nil {
		return err
	}
	if result == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(status int, body []byte, requestID string) *APIError {
	apiErr := &APIError{StatusCode: status, RequestID: requestID}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
