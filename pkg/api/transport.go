package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"dlpctl/pkg/logger"
)

const maxBodySize = 10 * 1024 * 1024 // 10MB

// transport handles authenticated HTTP communication with the gateway.
type transport struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     *tokenSource
	userAgent  string
	logger     logger.Logger
}

func newTransport(baseURL string, tokens *tokenSource, httpClient *http.Client, log logger.Logger) (*transport, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid gateway URL: %w", err)
	}

	return &transport{
		baseURL:    u,
		httpClient: httpClient,
		tokens:     tokens,
		userAgent:  "dlpctl/1.0",
		logger:     log,
	}, nil
}

// request is a gateway API request.
type request struct {
	Method string
	Path   string
	Body   any
}

// response is a raw gateway API response.
type response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// do executes a request with bearer auth and returns the raw response.
// Network failures come back as *TransientError.
func (t *transport) do(ctx context.Context, req *request) (*response, error) {
	token, err := t.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := t.buildRequest(ctx, req, token)
	if err != nil {
		return nil, err
	}

	t.logger.DebugWithFields("gateway request", map[string]interface{}{
		"method": req.Method,
		"path":   req.Path,
	})

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, transientFromErr(fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize+1))
	if err != nil {
		return nil, transientFromErr(fmt.Errorf("reading response body: %w", err))
	}
	if int64(len(body)) > maxBodySize {
		return nil, fmt.Errorf("response too large: exceeds %d bytes", maxBodySize)
	}

	// A stale token can outlive its server-side lifetime; drop it so
	// the next attempt re-authenticates.
	if httpResp.StatusCode == http.StatusUnauthorized {
		t.tokens.invalidate()
	}

	return &response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}, nil
}

// doJSON executes a request, maps non-2xx statuses to typed errors,
// and unmarshals the response into result when given.
func (t *transport) doJSON(ctx context.Context, req *request, result any) error {
	resp, err := t.do(ctx, req)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return parseError(resp.StatusCode, resp.Body, resp.Headers)
	}

	if result != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return fmt.Errorf("unmarshaling response: %w", err)
		}
	}
	return nil
}

func (t *transport) buildRequest(ctx context.Context, req *request, token string) (*http.Request, error) {
	u := t.baseURL.JoinPath(req.Path)

	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", t.userAgent)
	httpReq.Header.Set("Authorization", "Bearer "+token)

	return httpReq, nil
}
