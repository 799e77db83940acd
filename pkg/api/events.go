package api

import (
	"context"
	"iter"
	"net/http"

	"dlpctl/pkg/query"
	"dlpctl/pkg/retry"
)

// FileEventService provides file-event search.
type FileEventService interface {
	// Search returns a lazy iterator over all file events matching
	// the query, ascending by event time.
	Search(ctx context.Context, q query.Query) iter.Seq2[*FileEvent, error]

	// SearchPage returns a single page of results.
	SearchPage(ctx context.Context, q query.Query, pageToken string) (*FileEventPage, error)
}

type fileEventService struct {
	client *Client
}

func (s *fileEventService) Search(ctx context.Context, q query.Query) iter.Seq2[*FileEvent, error] {
	return func(yield func(*FileEvent, error) bool) {
		if err := validateQuery(q, query.DomainFileEvents); err != nil {
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

			for _, event := range page.FileEvents {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return
				}
				if !yield(event, nil) {
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

func (s *fileEventService) SearchPage(ctx context.Context, q query.Query, pageToken string) (*FileEventPage, error) {
	if err := validateQuery(q, query.DomainFileEvents); err != nil {
		return nil, err
	}
	if err := s.client.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return retry.DoWithResult(ctx, func() (*FileEventPage, error) {
		var page FileEventPage
		err := s.client.transport.doJSON(ctx, &request{
			Method: http.MethodPost,
			Path:   "/v2/file-events",
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
