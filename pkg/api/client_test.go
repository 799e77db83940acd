package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlpctl/pkg/config"
	"dlpctl/pkg/logger"
	"dlpctl/pkg/retry"
)

// newTestClient spins up a gateway stub with a working token endpoint
// and returns a client pointed at it. tokenFetches counts token
// requests.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()

	var tokenFetches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth", func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok || id != "test-client" || secret != "test-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		tokenFetches.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"token_type":   "Bearer",
			"expires_in":   900,
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.API.URL = srv.URL
	cfg.API.ClientID = "test-client"
	cfg.API.ClientSecret = "test-secret"
	cfg.API.MaxRetries = 0

	client, err := NewClient(cfg, WithLogger(logger.NewNop()))
	require.NoError(t, err)
	// No delays between attempts in tests.
	client.retryCfg.Backoff = &retry.ConstantBackoff{}
	return client, &tokenFetches
}

func TestNewClientValidation(t *testing.T) {
	t.Run("missing URL", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.API.ClientID = "id"
		cfg.API.ClientSecret = "secret"
		_, err := NewClient(cfg)
		assert.ErrorIs(t, err, ErrNoBaseURL)
	})

	t.Run("missing credentials", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.API.URL = "https://gateway.example.com"
		_, err := NewClient(cfg)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})
}

func TestTokenIsCachedAcrossRequests(t *testing.T) {
	client, tokenFetches := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AlertPage{})
	})

	q := testAlertQuery(t)
	for i := 0; i < 3; i++ {
		_, err := client.Alerts().SearchPage(context.Background(), q, "")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), tokenFetches.Load(), "token must be fetched once and reused")
}

func TestTokenRefreshesWhenStale(t *testing.T) {
	client, tokenFetches := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AlertPage{})
	})

	q := testAlertQuery(t)
	_, err := client.Alerts().SearchPage(context.Background(), q, "")
	require.NoError(t, err)

	// Jump past the token lifetime.
	client.transport.tokens.now = func() time.Time {
		return time.Now().Add(time.Hour)
	}

	_, err = client.Alerts().SearchPage(context.Background(), q, "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), tokenFetches.Load())
}

func TestBadCredentialsSurfaceAsAuthError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the API when token auth fails")
	})
	client.transport.tokens.clientSecret = "wrong"

	_, err := client.Alerts().SearchPage(context.Background(), testAlertQuery(t), "")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestServerErrorIsTransientAndRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(AlertPage{Alerts: []*Alert{{ID: "a-1"}}})
	})
	client.retryCfg.MaxAttempts = 3

	page, err := client.Alerts().SearchPage(context.Background(), testAlertQuery(t), "")
	require.NoError(t, err)
	assert.Len(t, page.Alerts, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTransientErrorWhenRetriesExhausted(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Alerts().SearchPage(context.Background(), testAlertQuery(t), "")
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	var te *TransientError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 30*time.Second, te.RetryAfter)
}

func TestCheckpointRecordConversion(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 500_000_000, time.UTC)

	alert := &Alert{ID: "a-1", CreatedAt: created}
	assert.Equal(t, "a-1", alert.CheckpointID())
	assert.InDelta(t, float64(created.Unix())+0.5, alert.CheckpointTime(), 1e-6)

	event := &FileEvent{EventID: "e-1", Timestamp: created}
	assert.Equal(t, "e-1", event.CheckpointID())
	assert.InDelta(t, alert.CheckpointTime(), event.CheckpointTime(), 1e-9)
}

func TestIteratorHelpers(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AlertPage{Alerts: []*Alert{
			{ID: "a-1"}, {ID: "a-2"}, {ID: "a-3"},
		}})
	})

	q := testAlertQuery(t)

	all, err := Collect(client.Alerts().Search(context.Background(), q))
	require.NoError(t, err)
	assert.Len(t, all, 3)

	two, err := CollectN(client.Alerts().Search(context.Background(), q), 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	first, err := First(client.Alerts().Search(context.Background(), q))
	require.NoError(t, err)
	assert.Equal(t, "a-1", first.ID)
}
