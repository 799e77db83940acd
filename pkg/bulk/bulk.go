// Package bulk applies alert state changes in batches from CSV or
// JSON-lines input. Rows sharing the same state and note are grouped
// so one API call covers them, and groups are chunked to the
// gateway's batch limit.
package bulk

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"dlpctl/pkg/query"
)

// ChunkSize is the gateway's maximum alert count per state change.
const ChunkSize = 100

// Update is one requested alert state change.
type Update struct {
	AlertID string
	State   string
	Note    string
}

// Batch is a group of alerts sharing the same target state and note,
// sized to fit one API call.
type Batch struct {
	State string
	Note  string
	IDs   []string
}

// ReadCSV parses updates from CSV input. The header row must name an
// id column ("id" or "alert_id"); "state" and "note" columns are
// picked up when present.
func ReadCSV(r io.Reader) ([]Update, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("empty CSV input")
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	idCol, stateCol, noteCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "id", "alert_id":
			idCol = i
		case "state":
			stateCol = i
		case "note":
			noteCol = i
		}
	}
	if idCol < 0 {
		return nil, errors.New(`CSV input must have an "id" or "alert_id" column`)
	}

	var updates []Update
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}

		u := Update{AlertID: strings.TrimSpace(row[idCol])}
		if stateCol >= 0 && stateCol < len(row) {
			u.State = strings.TrimSpace(row[stateCol])
		}
		if noteCol >= 0 && noteCol < len(row) {
			u.Note = row[noteCol]
		}
		if u.AlertID == "" {
			continue
		}
		updates = append(updates, u)
	}
	return updates, nil
}

// ReadJSONLines parses updates from JSON-lines input, one object per
// line with "id" (or "alert_id"), "state", and "note" keys. Alert
// search output in json-lines format feeds directly into this.
func ReadJSONLines(r io.Reader) ([]Update, error) {
	var updates []Update

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var row struct {
			ID      string `json:"id"`
			AlertID string `json:"alert_id"`
			State   string `json:"state"`
			Note    string `json:"note"`
		}
		if err := json.Unmarshal([]byte(text), &row); err != nil {
			return nil, fmt.Errorf("parsing JSON line %d: %w", line, err)
		}

		id := row.ID
		if id == "" {
			id = row.AlertID
		}
		if id == "" {
			return nil, fmt.Errorf("JSON line %d has no alert id", line)
		}
		updates = append(updates, Update{AlertID: id, State: row.State, Note: row.Note})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return updates, nil
}

// Group buckets updates by their effective (state, note) pair and
// chunks each bucket to the batch limit. Non-empty overrideState and
// overrideNote replace the per-row values. Every effective state must
// be a valid alert state.
func Group(updates []Update, overrideState, overrideNote string) ([]Batch, error) {
	type key struct {
		state string
		note  string
	}

	// Preserve first-seen order so output and API calls are
	// deterministic.
	var order []key
	buckets := make(map[key][]string)

	for _, u := range updates {
		state := u.State
		if overrideState != "" {
			state = overrideState
		}
		note := u.Note
		if overrideNote != "" {
			note = overrideNote
		}

		if state == "" {
			return nil, fmt.Errorf("alert %s has no state and no --state override was given", u.AlertID)
		}
		if !query.ValidState(state) {
			return nil, fmt.Errorf("alert %s has invalid state %q", u.AlertID, state)
		}

		k := key{state: state, note: note}
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], u.AlertID)
	}

	var batches []Batch
	for _, k := range order {
		ids := buckets[k]
		for start := 0; start < len(ids); start += ChunkSize {
			end := min(start+ChunkSize, len(ids))
			batches = append(batches, Batch{
				State: k.state,
				Note:  k.note,
				IDs:   ids[start:end],
			})
		}
	}
	return batches, nil
}
