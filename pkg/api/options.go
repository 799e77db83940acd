package api

import (
	"net/http"

	"dlpctl/pkg/logger"
	"dlpctl/pkg/ratelimit"
)

type clientOptions struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	pageSize   int
	logger     logger.Logger
}

// Option customizes the client.
type Option func(*clientOptions)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithLimiter sets a custom rate limiter.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(o *clientOptions) { o.limiter = l }
}

// WithPageSize overrides the configured search page size.
func WithPageSize(n int) Option {
	return func(o *clientOptions) { o.pageSize = n }
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}
