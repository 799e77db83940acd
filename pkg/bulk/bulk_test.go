package bulk_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlpctl/pkg/api"
	"dlpctl/pkg/bulk"
	"dlpctl/pkg/logger"
)

func TestReadCSV(t *testing.T) {
	t.Run("standard columns", func(t *testing.T) {
		in := strings.NewReader("alert_id,state,note\na-1,RESOLVED,done\na-2,OPEN,\n")
		updates, err := bulk.ReadCSV(in)
		require.NoError(t, err)
		assert.Equal(t, []bulk.Update{
			{AlertID: "a-1", State: "RESOLVED", Note: "done"},
			{AlertID: "a-2", State: "OPEN"},
		}, updates)
	})

	t.Run("id alias", func(t *testing.T) {
		in := strings.NewReader("id,state\na-1,OPEN\n")
		updates, err := bulk.ReadCSV(in)
		require.NoError(t, err)
		require.Len(t, updates, 1)
		assert.Equal(t, "a-1", updates[0].AlertID)
	})

	t.Run("missing id column", func(t *testing.T) {
		in := strings.NewReader("state,note\nOPEN,x\n")
		_, err := bulk.ReadCSV(in)
		assert.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := bulk.ReadCSV(strings.NewReader(""))
		assert.Error(t, err)
	})

	t.Run("blank ids skipped", func(t *testing.T) {
		in := strings.NewReader("id,state\n,OPEN\na-1,OPEN\n")
		updates, err := bulk.ReadCSV(in)
		require.NoError(t, err)
		assert.Len(t, updates, 1)
	})
}

func TestReadJSONLines(t *testing.T) {
	t.Run("search output feeds in directly", func(t *testing.T) {
		in := strings.NewReader(
			`{"id":"a-1","state":"OPEN","note":"x","riskSeverity":"HIGH"}` + "\n" +
				`{"id":"a-2","state":"PENDING"}` + "\n")
		updates, err := bulk.ReadJSONLines(in)
		require.NoError(t, err)
		assert.Equal(t, []bulk.Update{
			{AlertID: "a-1", State: "OPEN", Note: "x"},
			{AlertID: "a-2", State: "PENDING"},
		}, updates)
	})

	t.Run("blank lines ignored", func(t *testing.T) {
		in := strings.NewReader("\n" + `{"id":"a-1"}` + "\n\n")
		updates, err := bulk.ReadJSONLines(in)
		require.NoError(t, err)
		assert.Len(t, updates, 1)
	})

	t.Run("missing id fails", func(t *testing.T) {
		_, err := bulk.ReadJSONLines(strings.NewReader(`{"state":"OPEN"}`))
		assert.Error(t, err)
	})

	t.Run("malformed line fails", func(t *testing.T) {
		_, err := bulk.ReadJSONLines(strings.NewReader(`{broken`))
		assert.Error(t, err)
	})
}

func TestGroup(t *testing.T) {
	t.Run("buckets by state and note", func(t *testing.T) {
		updates := []bulk.Update{
			{AlertID: "a-1", State: "RESOLVED", Note: "stale"},
			{AlertID: "a-2", State: "OPEN"},
			{AlertID: "a-3", State: "RESOLVED", Note: "stale"},
		}
		batches, err := bulk.Group(updates, "", "")
		require.NoError(t, err)
		require.Len(t, batches, 2)
		assert.Equal(t, bulk.Batch{State: "RESOLVED", Note: "stale", IDs: []string{"a-1", "a-3"}}, batches[0])
		assert.Equal(t, bulk.Batch{State: "OPEN", IDs: []string{"a-2"}}, batches[1])
	})

	t.Run("overrides collapse buckets", func(t *testing.T) {
		updates := []bulk.Update{
			{AlertID: "a-1", State: "OPEN", Note: "x"},
			{AlertID: "a-2", State: "PENDING", Note: "y"},
		}
		batches, err := bulk.Group(updates, "RESOLVED", "bulk close")
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, "RESOLVED", batches[0].State)
		assert.Equal(t, "bulk close", batches[0].Note)
		assert.Equal(t, []string{"a-1", "a-2"}, batches[0].IDs)
	})

	t.Run("chunks at the batch limit", func(t *testing.T) {
		updates := make([]bulk.Update, 250)
		for i := range updates {
			updates[i] = bulk.Update{AlertID: fmt.Sprintf("a-%d", i), State: "RESOLVED"}
		}
		batches, err := bulk.Group(updates, "", "")
		require.NoError(t, err)
		require.Len(t, batches, 3)
		assert.Len(t, batches[0].IDs, 100)
		assert.Len(t, batches[1].IDs, 100)
		assert.Len(t, batches[2].IDs, 50)
	})

	t.Run("missing state without override fails", func(t *testing.T) {
		_, err := bulk.Group([]bulk.Update{{AlertID: "a-1"}}, "", "")
		assert.ErrorContains(t, err, "a-1")
	})

	t.Run("invalid state fails", func(t *testing.T) {
		_, err := bulk.Group([]bulk.Update{{AlertID: "a-1", State: "CLOSED"}}, "", "")
		assert.ErrorContains(t, err, "CLOSED")
	})
}

// fakeChanger records ChangeState calls and fails configured ids with
// a 404.
type fakeChanger struct {
	calls      [][]string
	missingIDs map[string]bool
	err        error
}

func (f *fakeChanger) ChangeState(ctx context.Context, ids []string, state, note string) error {
	f.calls = append(f.calls, ids)
	if f.err != nil {
		return f.err
	}
	for _, id := range ids {
		if f.missingIDs[id] {
			return &api.NotFoundError{ResourceType: "alert", ResourceID: id}
		}
	}
	return nil
}

func TestApply(t *testing.T) {
	t.Run("all batches succeed", func(t *testing.T) {
		fc := &fakeChanger{}
		batches := []bulk.Batch{
			{State: "RESOLVED", IDs: []string{"a-1", "a-2"}},
			{State: "OPEN", IDs: []string{"a-3"}},
		}

		result, err := bulk.Apply(context.Background(), fc, batches, logger.NewNop())
		require.NoError(t, err)
		assert.Equal(t, 3, result.Updated)
		assert.Empty(t, result.Failed)
		assert.Len(t, fc.calls, 2)
	})

	t.Run("404 falls back to individual updates", func(t *testing.T) {
		fc := &fakeChanger{missingIDs: map[string]bool{"a-2": true}}
		batches := []bulk.Batch{
			{State: "RESOLVED", IDs: []string{"a-1", "a-2", "a-3"}},
		}

		result, err := bulk.Apply(context.Background(), fc, batches, logger.NewNop())
		require.NoError(t, err)
		assert.Equal(t, 2, result.Updated)
		assert.Equal(t, []string{"a-2"}, result.Failed)
		// One batch call plus three individual retries.
		assert.Len(t, fc.calls, 4)
	})

	t.Run("other errors abort", func(t *testing.T) {
		fc := &fakeChanger{err: errors.New("gateway down")}
		batches := []bulk.Batch{{State: "OPEN", IDs: []string{"a-1"}}}

		_, err := bulk.Apply(context.Background(), fc, batches, logger.NewNop())
		assert.ErrorContains(t, err, "gateway down")
	})
}
