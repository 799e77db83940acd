package api

import (
	"context"
	"iter"
	"net/http"

	"dlpctl/pkg/query"
	"dlpctl/pkg/retry"
)

// AlertService provides alert search and state management.
type AlertService interface {
	// Search returns a lazy iterator over all alerts matching the
	// query, ascending by creation time. Pages are fetched as the
	// iterator advances.
	Search(ctx context.Context, q query.Query) iter.Seq2[*Alert, error]

	// SearchPage returns a single page of results.
	SearchPage(ctx context.Context, q query.Query, pageToken string) (*AlertPage, error)

	// Get retrieves the details of a single alert.
	Get(ctx context.Context, id string) (*Alert, error)

	// AddNote attaches a note to an alert.
	AddNote(ctx context.Context, id, note string) error

	// ChangeState sets the state of up to 100 alerts, optionally
	// recording a note for the change.
	ChangeState(ctx context.Context, ids []string, state, note string) error
}

type alertService struct {
	client *Client
}

type searchRequest struct {
	Query     query.Query `json:"query"`
	PageSize  int         `json:"pgSize"`
	PageToken string      `json:"pgToken,omitempty"`
}

func (s *alertService) Search(ctx context.Context, q query.Query) iter.Seq2[*Alert, error] {
	return func(yield func(*Alert, error) bool) {
		if err := validateQuery(q, query.DomainAlerts); err != nil {
			yield(nil, err)
			return
		}

		token := ""
		for {
			page, err := s.SearchPage(ctx, q, token)
			if err != nil {
				yield(nil, err)
				return
			}

			for _, alert := range page.Alerts {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return
				}
				if !yield(alert, nil) {
					return
				}
			}

			if page.NextPageToken == "" {
				return
			}
			token = page.NextPageToken
		}
	}
}

func (s *alertService) SearchPage(ctx context.Context, q query.Query, pageToken string) (*AlertPage, error) {
	if err := validateQuery(q, query.DomainAlerts); err != nil {
		return nil, err
	}
	if err := s.client.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return retry.DoWithResult(ctx, func() (*AlertPage, error) {
		var page AlertPage
		err := s.client.transport.doJSON(ctx, &request{
			Method: http.MethodPost,
			Path:   "/v1/alerts/query-alerts",
			Body: searchRequest{
				Query:     q,
				PageSize:  s.client.pageSize,
				PageToken: pageToken,
			},
		}, &page)
		if err != nil {
			return nil, err
		}
		return &page, nil
	}, s.client.retryCfg)
}

func (s *alertService) Get(ctx context.Context, id string) (*Alert, error) {
	if id == "" {
		return nil, &ValidationError{APIError: APIError{Message: "alert id cannot be empty"}}
	}

	if err := s.client.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result struct {
		Alerts []*Alert `json:"alerts"`
	}
	err := s.client.transport.doJSON(ctx, &request{
		Method: http.MethodPost,
		Path:   "/v1/alerts/query-details",
		Body:   map[string]any{"alertIds": []string{id}},
	}, &result)
	if err != nil {
		return nil, err
	}

	if len(result.Alerts) == 0 {
		return nil, &NotFoundError{
			APIError:     APIError{StatusCode: http.StatusNotFound, Message: "alert not found"},
			ResourceType: "alert",
			ResourceID:   id,
		}
	}
	return result.Alerts[0], nil
}

func (s *alertService) AddNote(ctx context.Context, id, note string) error {
	if id == "" {
		return &ValidationError{APIError: APIError{Message: "alert id cannot be empty"}}
	}

	if err := s.client.limiter.Wait(ctx); err != nil {
		return err
	}

	return s.client.transport.doJSON(ctx, &request{
		Method: http.MethodPost,
		Path:   "/v1/alerts/add-note",
		Body:   map[string]any{"alertId": id, "note": note},
	}, nil)
}

func (s *alertService) ChangeState(ctx context.Context, ids []string, state, note string) error {
	if len(ids) == 0 {
		return &ValidationError{APIError: APIError{Message: "no alert ids given"}}
	}
	if len(ids) > 100 {
		return &ValidationError{APIError: APIError{Message: "at most 100 alerts per state change"}}
	}
	if !query.ValidState(state) {
		return &ValidationError{APIError: APIError{Message: "invalid alert state: " + state}}
	}

	if err := s.client.limiter.Wait(ctx); err != nil {
		return err
	}

	body := map[string]any{"alertIds": ids, "state": state}
	if note != "" {
		body["note"] = note
	}
	return s.client.transport.doJSON(ctx, &request{
		Method: http.MethodPost,
		Path:   "/v1/alerts/change-state",
		Body:   body,
	}, nil)
}

// validateQuery rejects unexecutable or cross-domain queries before
// anything touches the network.
func validateQuery(q query.Query, want query.Domain) error {
	if q.Domain() != want {
		return &ValidationError{APIError: APIError{
			Message: "query was built for domain " + string(q.Domain()),
		}}
	}
	return q.Validate()
}
