package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlpctl/pkg/query"
)

func testAlertQuery(t *testing.T) query.Query {
	t.Helper()
	return query.New(query.DomainAlerts).WithStart(1700000000)
}

func TestAlertSearchFollowsPageTokens(t *testing.T) {
	var bodies []searchRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/alerts/query-alerts", r.URL.Path)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		bodies = append(bodies, req)

		switch req.PageToken {
		case "":
			_ = json.NewEncoder(w).Encode(AlertPage{
				Alerts:        []*Alert{{ID: "a-1"}, {ID: "a-2"}},
				NextPageToken: "page-2",
			})
		case "page-2":
			_ = json.NewEncoder(w).Encode(AlertPage{
				Alerts: []*Alert{{ID: "a-3"}},
			})
		default:
			t.Errorf("unexpected page token %q", req.PageToken)
		}
	})

	alerts, err := Collect(client.Alerts().Search(context.Background(), testAlertQuery(t)))
	require.NoError(t, err)

	ids := make([]string, 0, len(alerts))
	for _, a := range alerts {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"a-1", "a-2", "a-3"}, ids)

	require.Len(t, bodies, 2)
	assert.Equal(t, "", bodies[0].PageToken)
	assert.Equal(t, "page-2", bodies[1].PageToken)
	assert.Equal(t, client.pageSize, bodies[0].PageSize)
}

func TestAlertSearchStopsEarly(t *testing.T) {
	var pages int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		pages++
		_ = json.NewEncoder(w).Encode(AlertPage{
			Alerts:        []*Alert{{ID: "a-1"}, {ID: "a-2"}},
			NextPageToken: "more",
		})
	})

	got, err := CollectN(client.Alerts().Search(context.Background(), testAlertQuery(t)), 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, pages, "consumer stopping must stop page fetches")
}

func TestAlertSearchRejectsBadQueriesBeforeNetwork(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request may be sent for an invalid query")
	})

	t.Run("missing time bounds", func(t *testing.T) {
		q := query.New(query.DomainAlerts)
		_, err := Collect(client.Alerts().Search(context.Background(), q))
		assert.ErrorIs(t, err, query.ErrMissingTimeBounds)
	})

	t.Run("cross-domain query", func(t *testing.T) {
		q := query.New(query.DomainFileEvents).WithStart(1700000000)
		_, err := Collect(client.Alerts().Search(context.Background(), q))

		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestAlertSearchHonorsContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AlertPage{
			Alerts:        []*Alert{{ID: "a-1"}, {ID: "a-2"}},
			NextPageToken: "more",
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got []string
	var streamErr error
	for a, err := range client.Alerts().Search(ctx, testAlertQuery(t)) {
		if err != nil {
			streamErr = err
			break
		}
		got = append(got, a.ID)
		cancel()
	}

	assert.Equal(t, []string{"a-1"}, got)
	assert.ErrorIs(t, streamErr, context.Canceled)
}

func TestAlertGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/alerts/query-details", r.URL.Path)

			var req struct {
				AlertIDs []string `json:"alertIds"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, []string{"a-42"}, req.AlertIDs)

			_ = json.NewEncoder(w).Encode(map[string]any{
				"alerts": []*Alert{{ID: "a-42", Name: "Exfil to removable media", State: "OPEN"}},
			})
		})

		alert, err := client.Alerts().Get(context.Background(), "a-42")
		require.NoError(t, err)
		assert.Equal(t, "Exfil to removable media", alert.Name)
	})

	t.Run("not found", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"alerts": []*Alert{}})
		})

		_, err := client.Alerts().Get(context.Background(), "a-missing")

		var nfe *NotFoundError
		require.ErrorAs(t, err, &nfe)
		assert.Equal(t, "a-missing", nfe.ResourceID)
	})

	t.Run("empty id", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request may be sent for an empty id")
		})

		_, err := client.Alerts().Get(context.Background(), "")

		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestAlertAddNote(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/alerts/add-note", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a-1", req["alertId"])
		assert.Equal(t, "triaged by on-call", req["note"])
	})

	err := client.Alerts().AddNote(context.Background(), "a-1", "triaged by on-call")
	require.NoError(t, err)
}

func TestAlertChangeState(t *testing.T) {
	t.Run("batch", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/alerts/change-state", r.URL.Path)

			var req struct {
				AlertIDs []string `json:"alertIds"`
				State    string   `json:"state"`
				Note     string   `json:"note"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"a-1", "a-2"}, req.AlertIDs)
			assert.Equal(t, "RESOLVED", req.State)
			assert.Equal(t, "closing stale alerts", req.Note)
		})

		err := client.Alerts().ChangeState(context.Background(), []string{"a-1", "a-2"}, "RESOLVED", "closing stale alerts")
		require.NoError(t, err)
	})

	t.Run("invalid state", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request may be sent for an invalid state")
		})

		err := client.Alerts().ChangeState(context.Background(), []string{"a-1"}, "CLOSED", "")

		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("oversized batch", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request may be sent for an oversized batch")
		})

		ids := make([]string, 101)
		for i := range ids {
			ids[i] = "a"
		}
		err := client.Alerts().ChangeState(context.Background(), ids, "OPEN", "")

		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("missing alert maps to NotFoundError", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		err := client.Alerts().ChangeState(context.Background(), []string{"a-gone"}, "RESOLVED", "")

		var nfe *NotFoundError
		assert.ErrorAs(t, err, &nfe)
	})
}
