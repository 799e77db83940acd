// Package checkpoint turns a one-shot, timestamp-ordered search into a
// resumable, deduplicated stream.
//
// The remote search APIs order results by event time but allow ties at
// second-or-finer granularity. Resuming with "start = last seen
// timestamp" alone would re-match every record sharing that exact
// timestamp, so a checkpoint stores the full id set at the boundary
// timestamp alongside the scalar value. The coordinator persists after
// every record it hands to the consumer, so an interrupted run leaves
// the checkpoint consistent with exactly what was delivered.
//
// Delivery across hard crashes is at-least-once, not exactly-once: a
// crash between handing a record to the consumer and the persist that
// follows re-delivers that record on the next run.
package checkpoint

import (
	"iter"
	"math"
	"slices"

	"dlpctl/pkg/query"
)

// Record is the minimal view the coordinator needs of a search result:
// a stable unique id and the event timestamp in epoch seconds.
type Record interface {
	CheckpointID() string
	CheckpointTime() float64
}

// Store is the durable cursor state the coordinator reads and
// advances. *cursor.Store satisfies it.
type Store interface {
	Get(name string) (float64, bool, error)
	SeenIDs(name string) ([]string, error)
	Advance(name string, timestamp float64, ids []string) error
}

// Seed sets the query's start bound to the named checkpoint's stored
// timestamp, if one exists. Only the time boundary is managed; callers
// must still supply any non-time filters on every run. The boolean
// reports whether a stored checkpoint was applied.
func Seed(store Store, name string, q query.Query) (query.Query, bool, error) {
	ts, ok, err := store.Get(name)
	if err != nil {
		return q, false, err
	}
	if !ok {
		return q, false, nil
	}
	return q.WithStart(ts), true, nil
}

// Follow wraps an ascending-by-timestamp record stream so that records
// already delivered by a previous run of the named checkpoint are
// skipped, and the checkpoint advances as each new record is consumed.
//
// The returned sequence is single-use and makes one pass over the
// underlying fetch; resuming requires a fresh fetch seeded via Seed.
// Errors from the underlying stream or from persistence are yielded
// and end the sequence, leaving the store at the last fully persisted
// record. An empty fetch leaves the checkpoint untouched.
func Follow[T Record](store Store, name string, seq iter.Seq2[T, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		prevTS, havePrev, err := store.Get(name)
		if err != nil {
			yield(zero, err)
			return
		}
		seen, err := store.SeenIDs(name)
		if err != nil {
			yield(zero, err)
			return
		}
		seenSet := make(map[string]struct{}, len(seen))
		for _, id := range seen {
			seenSet[id] = struct{}{}
		}

		runningMax := math.Inf(-1)
		var newIDs []string

		for rec, err := range seq {
			if err != nil {
				yield(zero, err)
				return
			}

			id := rec.CheckpointID()
			if _, dup := seenSet[id]; dup {
				continue
			}

			// A strictly newer timestamp starts a fresh boundary set;
			// ties accumulate into the current one.
			if ts := rec.CheckpointTime(); ts > runningMax {
				runningMax = ts
				newIDs = newIDs[:0]
			}
			newIDs = append(newIDs, id)

			// While the boundary timestamp has not moved past the
			// stored one, the previously seen ids still belong to it
			// and must survive the full-replace persist.
			persistIDs := slices.Clone(newIDs)
			if havePrev && runningMax == prevTS {
				persistIDs = append(slices.Clone(seen), newIDs...)
			}

			delivered := yield(rec, nil)

			// Persist even when the consumer stops early, so the
			// record it just received is never re-delivered.
			if err := store.Advance(name, runningMax, persistIDs); err != nil {
				if delivered {
					yield(zero, err)
				}
				return
			}
			if !delivered {
				return
			}
		}
	}
}
