package bulk

import (
	"context"
	"errors"
	"fmt"

	"dlpctl/pkg/api"
	"dlpctl/pkg/logger"
)

// StateChanger is the slice of the alert service bulk updates need.
type StateChanger interface {
	ChangeState(ctx context.Context, ids []string, state, note string) error
}

// Result summarizes an Apply run.
type Result struct {
	Updated int
	Failed  []string
}

// Apply executes the batches in order. When a batch fails with a 404
// the gateway does not say which id is missing, so the batch is
// retried id by id and only the missing ones are reported as failed.
// Other errors abort the run.
func Apply(ctx context.Context, sc StateChanger, batches []Batch, log logger.Logger) (*Result, error) {
	result := &Result{}

	for _, batch := range batches {
		err := sc.ChangeState(ctx, batch.IDs, batch.State, batch.Note)
		if err == nil {
			result.Updated += len(batch.IDs)
			log.InfoWithFields("batch updated", map[string]interface{}{
				"count": len(batch.IDs),
				"state": batch.State,
			})
			continue
		}

		var nfe *api.NotFoundError
		if !errors.As(err, &nfe) {
			return result, fmt.Errorf("updating batch of %d alerts: %w", len(batch.IDs), err)
		}

		log.WarnWithFields("batch contains unknown alert ids, retrying individually", map[string]interface{}{
			"count": len(batch.IDs),
		})
		for _, id := range batch.IDs {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			err := sc.ChangeState(ctx, []string{id}, batch.State, batch.Note)
			switch {
			case err == nil:
				result.Updated++
			case errors.As(err, &nfe):
				result.Failed = append(result.Failed, id)
				log.WarnWithFields("alert not found", map[string]interface{}{"alert_id": id})
			default:
				return result, fmt.Errorf("updating alert %s: %w", id, err)
			}
		}
	}

	return result, nil
}
