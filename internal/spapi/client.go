package spapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// baseURLs maps SP-API regions to their endpoints.
var baseURLs = map[string]string{
	"NA": "https://sellingpartnerapi-na.amazon.com",
	"EU": "https://sellingpartnerapi-eu.amazon.com",
	"FE": "https://sellingpartnerapi-fe.amazon.com",
}

// ClientConfig holds settings for the SP-API client.
type ClientConfig struct {
	Region          string
	Endpoint        string // overrides the region base URL when set
	RequestTimeout  time.Duration
	MaxRetries      int
	InitialInterval time.Duration // backoff start value, defaults to 500ms
}

// Client issues authenticated requests against the SP-API. Rate-limited
// (429) and 5xx responses are retried with exponential backoff; 401
// invalidates the cached token so the retry runs with a fresh one.
type Client struct {
	baseURL         string
	tokens          *TokenManager
	client          *http.Client
	maxRetries      int
	initialInterval time.Duration
}

// NewClient creates an SP-API client bound to a token manager.
func NewClient(cfg ClientConfig, tokens *TokenManager) *Client {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = baseURLs[cfg.Region]
		if baseURL == "" {
			baseURL = baseURLs["NA"]
		}
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 4
	}
	initialInterval := cfg.InitialInterval
	if initialInterval == 0 {
		initialInterval = 500 * time.Millisecond
	}

	return &Client{
		baseURL:         baseURL,
		tokens:          tokens,
		client:          &http.Client{Timeout: timeout},
		maxRetries:      maxRetries,
		initialInterval: initialInterval,
	}
}

// Get issues an authenticated GET request and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post issues an authenticated POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval

	return backoff.Retry(ctx, func() (json.RawMessage, error) {
		return c.attempt(ctx, method, path, query, payload)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(c.maxRetries)))
}

// attempt performs a single request. Errors returned non-permanent are
// retried by the backoff loop in do.
func (c *Client) attempt(ctx context.Context, method, path string, query url.Values, payload []byte) (json.RawMessage, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-amz-access-token", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Transport failures are worth retrying.
		return nil, &NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return json.RawMessage(respBody), nil
	}

	apiErr := &ApiError{StatusCode: resp.StatusCode, Body: string(respBody)}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// Token may have been revoked remotely; refresh on the next attempt.
		c.tokens.Invalidate()
		return nil, apiErr
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		log.Printf("[ApiClient] %s %s returned %d, retrying", method, path, resp.StatusCode)
		return nil, apiErr
	default:
		return nil, backoff.Permanent(apiErr)
	}
}
