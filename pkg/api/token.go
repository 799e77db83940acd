package api

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
)

// refreshSkew renews the token this long before its actual expiry so
// in-flight requests never carry a token about to lapse.
const refreshSkew = 60 * time.Second

// tokenSource fetches and caches a bearer token via the
// client-credentials grant.
type tokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	expiry      time.Time

	// now is swappable for tests
	now func() time.Time
}

func newTokenSource(baseURL, clientID, clientSecret string, httpClient *http.Client) *tokenSource {
	return &tokenSource{
		tokenURL:     strings.TrimSuffix(baseURL, "/") + "/v1/oauth",
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		now:          time.Now,
	}
}

// Token returns a valid bearer token, refreshing it when stale.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.accessToken != "" && ts.now().Before(ts.expiry.Add(-refreshSkew)) {
		return ts.accessToken, nil
	}

	if err := ts.refresh(ctx); err != nil {
		return "", err
	}
	return ts.accessToken, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (ts *tokenSource) refresh(ctx context.Context) error {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating token request: %w", err)
	}
	req.SetBasicAuth(ts.clientID, ts.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return transientFromErr(fmt.Errorf("token request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return transientFromErr(fmt.Errorf("reading token response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return parseError(resp.StatusCode, body, resp.Header)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return fmt.Errorf("parsing token response: %w", err)
	}
	if tok.AccessToken == "" {
		return &AuthError{APIError: APIError{
			StatusCode: resp.StatusCode,
			Message:    "token endpoint returned no access token",
		}}
	}

	ts.accessToken = tok.AccessToken
	ts.expiry = ts.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return nil
}

// invalidate drops the cached token so the next request fetches a
// fresh one.
func (ts *tokenSource) invalidate() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.accessToken = ""
}
