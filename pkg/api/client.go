// Package api is the gateway client: token auth, paged search over
// alerts and file events, and alert state management. Searches return
// lazy iterators that follow page tokens transparently; failures
// surface as typed errors so callers can tell fatal credential
// problems from transient ones.
package api

import (
	"net/http"

	"dlpctl/pkg/config"
	"dlpctl/pkg/logger"
	"dlpctl/pkg/ratelimit"
	"dlpctl/pkg/retry"
)

const (
	defaultPageSize = 100
	maxPageSize     = 10000
)

// Client talks to the gateway API.
type Client struct {
	transport *transport
	limiter   ratelimit.Limiter
	retryCfg  *retry.Config
	pageSize  int
	logger    logger.Logger

	alerts *alertService
	events *fileEventService
}

// NewClient builds a gateway client from the configuration.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg.API.URL == "" {
		return nil, ErrNoBaseURL
	}
	if cfg.API.ClientID == "" || cfg.API.ClientSecret == "" {
		return nil, ErrNoCredentials
	}

	options := &clientOptions{
		pageSize: cfg.API.PageSize,
		logger:   logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.httpClient == nil {
		options.httpClient = &http.Client{Timeout: cfg.API.Timeout}
	}
	if options.limiter == nil {
		options.limiter = ratelimit.NewFromConfig(&cfg.RateLimit)
	}
	if options.pageSize <= 0 {
		options.pageSize = defaultPageSize
	}
	if options.pageSize > maxPageSize {
		options.pageSize = maxPageSize
	}

	tokens := newTokenSource(cfg.API.URL, cfg.API.ClientID, cfg.API.ClientSecret, options.httpClient)
	tr, err := newTransport(cfg.API.URL, tokens, options.httpClient, options.logger)
	if err != nil {
		return nil, err
	}

	c := &Client{
		transport: tr,
		limiter:   options.limiter,
		retryCfg: &retry.Config{
			MaxAttempts: cfg.API.MaxRetries + 1,
			Backoff:     retry.DefaultExponentialBackoff(),
			RetryIf:     IsTransient,
			Logger:      options.logger,
		},
		pageSize: options.pageSize,
		logger:   options.logger,
	}
	c.alerts = &alertService{client: c}
	c.events = &fileEventService{client: c}
	return c, nil
}

// Alerts returns the alert service.
func (c *Client) Alerts() AlertService { return c.alerts }

// FileEvents returns the file-event service.
func (c *Client) FileEvents() FileEventService { return c.events }
