package spapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// expirySkew is subtracted from the reported token lifetime so a token is
// refreshed shortly before the remote side considers it expired.
const expirySkew = 30 * time.Second

// TokenConfig holds the LWA credentials for the refresh-token exchange.
type TokenConfig struct {
	Endpoint     string // LWA token endpoint
	ClientID     string
	ClientSecret string
	RefreshToken string
	HTTPClient   *http.Client
}

// TokenManager owns the cached LWA access token for this process.
// The token is never persisted; an expired or absent token triggers a
// single refresh exchange shared by all concurrent callers.
type TokenManager struct {
	endpoint     string
	clientID     string
	clientSecret string
	refreshToken string
	client       *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenManager creates a token manager with an empty cache.
func NewTokenManager(cfg TokenConfig) *TokenManager {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenManager{
		endpoint:     cfg.Endpoint,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		refreshToken: cfg.RefreshToken,
		client:       client,
	}
}

// Token returns the cached access token, refreshing it when absent or
// expired. Holding the mutex across the exchange serializes refreshes:
// concurrent callers block and reuse the single exchange's result.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.expiresAt) {
		return m.token, nil
	}

	token, expiresIn, err := m.exchange(ctx)
	if err != nil {
		return "", &AuthError{Cause: err}
	}

	m.token = token
	m.expiresAt = time.Now().Add(expiresIn - expirySkew)
	log.Printf("[TokenManager] Access token refreshed, valid for %v", expiresIn)
	return m.token, nil
}

// Invalidate drops the cached token so the next caller refreshes.
// Called after the remote API rejects a request with 401.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiresAt = time.Time{}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// exchange performs the LWA refresh-token grant. Caller holds m.mu.
func (m *TokenManager) exchange(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {m.refreshToken},
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("identity endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", 0, fmt.Errorf("token response missing access_token")
	}
	// Never cache a token of unknown lifetime.
	if tr.ExpiresIn <= 0 {
		return "", 0, fmt.Errorf("token response missing expires_in")
	}

	return tr.AccessToken, time.Duration(tr.ExpiresIn) * time.Second, nil
}
