package main

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dlpctl/pkg/checkpoint"
	"dlpctl/pkg/cursor"
	"dlpctl/pkg/logger"
	"dlpctl/pkg/output"
	"dlpctl/pkg/query"
)

// searchFlags holds the flags shared by the alerts and events search
// commands.
type searchFlags struct {
	start          string
	end            string
	on             string
	advancedQuery  string
	checkpointName string
	format         string
	columns        string
	outputServer   string
	protocol       string
	certPath       string
	ignoreCert     bool
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "earliest event time (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "latest event time (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.on, "on", "", "restrict to a single day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.advancedQuery, "advanced-query", "", "serialized query produced by a previous run")
	cmd.Flags().StringVar(&f.checkpointName, "checkpoint", "", "checkpoint name; only new results are returned on subsequent runs")
	cmd.Flags().StringVar(&f.format, "format", "", "output format (table, csv, json, json-lines)")
	cmd.Flags().StringVar(&f.columns, "columns", "", "comma-separated columns for table and csv output")
	cmd.Flags().StringVar(&f.outputServer, "output", "", "forward results to a server (host:port) instead of stdout")
	cmd.Flags().StringVar(&f.protocol, "protocol", "", "forwarding protocol (tcp, udp, tls)")
	cmd.Flags().StringVar(&f.certPath, "certs", "", "PEM bundle to trust for TLS forwarding")
	cmd.Flags().BoolVar(&f.ignoreCert, "ignore-cert-validation", false, "skip TLS certificate verification when forwarding")
}

// parseTimeFlag accepts RFC 3339, a date with time, or a bare date,
// and returns epoch seconds.
func parseTimeFlag(s string) (float64, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return float64(t.UnixNano()) / float64(time.Second), nil
		}
	}
	return 0, fmt.Errorf("unrecognized time %q (use RFC 3339 or YYYY-MM-DD)", s)
}

// buildQuery assembles a query from the shared time flags plus
// equality filters, or parses --advanced-query.
func buildQuery(domain query.Domain, f *searchFlags, filters map[string]string) (query.Query, error) {
	if f.advancedQuery != "" {
		return query.Parse(domain, f.advancedQuery)
	}

	q := query.New(domain)
	if f.start != "" {
		ts, err := parseTimeFlag(f.start)
		if err != nil {
			return query.Query{}, fmt.Errorf("--start: %w", err)
		}
		q = q.WithStart(ts)
	}
	if f.end != "" {
		ts, err := parseTimeFlag(f.end)
		if err != nil {
			return query.Query{}, fmt.Errorf("--end: %w", err)
		}
		q = q.WithEnd(ts)
	}
	if f.on != "" {
		q = q.WithOn(f.on)
	}

	var err error
	for field, value := range filters {
		if value == "" {
			continue
		}
		q, err = q.Equals(field, value)
		if err != nil {
			return query.Query{}, err
		}
	}
	return q, nil
}

// seedFromCheckpoint applies the stored checkpoint timestamp as the
// query start bound. A query with no time constraint is only legal
// when a checkpoint supplied one.
func seedFromCheckpoint(store *cursor.Store, name string, q query.Query) (query.Query, error) {
	if name != "" {
		seeded, applied, err := checkpoint.Seed(store, name, q)
		if err != nil {
			return query.Query{}, err
		}
		if applied {
			logger.GetLogger().DebugWithFields("resuming from checkpoint", map[string]interface{}{
				"checkpoint": name,
			})
		}
		q = seeded
	}

	if err := q.Validate(); err != nil {
		if errors.Is(err, query.ErrMissingTimeBounds) {
			return query.Query{}, errors.New("--start, --end, or --on is required unless using --advanced-query or an existing checkpoint")
		}
		return query.Query{}, err
	}
	return q, nil
}

// renderer is the common surface of the per-format writers.
type renderer[T any] interface {
	write(record T) error
	flush() error
}

type rowRenderer[T any] struct {
	w interface {
		WriteRow([]string) error
		Flush() error
	}
	toRow func(T) []string
}

func (r *rowRenderer[T]) write(record T) error { return r.w.WriteRow(r.toRow(record)) }
func (r *rowRenderer[T]) flush() error         { return r.w.Flush() }

type objectRenderer[T any] struct {
	w interface{ WriteObject(any) error }
}

func (r *objectRenderer[T]) write(record T) error { return r.w.WriteObject(record) }
func (r *objectRenderer[T]) flush() error         { return nil }

type forwardRenderer[T any] struct {
	fwd *output.Forwarder
}

func (r *forwardRenderer[T]) write(record T) error { return r.fwd.Send(record) }
func (r *forwardRenderer[T]) flush() error         { return r.fwd.Close() }

// newRenderer builds the output sink for a search command. columnsFor
// maps column names to value extractors; defaults lists the columns
// used when --columns is not given.
func newRenderer[T any](f *searchFlags, defaults []string, columnsFor map[string]func(T) string) (renderer[T], error) {
	// Forwarding always sends raw JSON lines.
	if f.outputServer != "" {
		proto, err := output.ParseProtocol(f.protocol)
		if err != nil {
			return nil, err
		}
		fwd, err := output.NewForwarder(f.outputServer, proto, f.certPath, f.ignoreCert)
		if err != nil {
			return nil, err
		}
		return &forwardRenderer[T]{fwd: fwd}, nil
	}

	name := f.format
	if name == "" {
		name = cfg.Output.Format
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return nil, err
	}

	switch format {
	case output.FormatJSON:
		return &objectRenderer[T]{w: output.NewJSON(os.Stdout)}, nil
	case output.FormatJSONLines:
		return &objectRenderer[T]{w: output.NewJSONLines(os.Stdout)}, nil
	}

	columns := defaults
	if f.columns != "" {
		columns = strings.Split(f.columns, ",")
	}
	extractors := make([]func(T) string, len(columns))
	for i, col := range columns {
		col = strings.TrimSpace(col)
		columns[i] = col
		ex, ok := columnsFor[col]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", col)
		}
		extractors[i] = ex
	}
	toRow := func(record T) []string {
		row := make([]string, len(extractors))
		for i, ex := range extractors {
			row[i] = ex(record)
		}
		return row
	}

	if format == output.FormatCSV {
		return &rowRenderer[T]{w: output.NewCSV(os.Stdout, columns), toRow: toRow}, nil
	}
	return &rowRenderer[T]{w: output.NewTable(os.Stdout, columns), toRow: toRow}, nil
}

// runSearch drains the stream through the renderer. With a checkpoint
// the stream persists progress after every record, so interrupts only
// stop the iteration between records.
func runSearch[T checkpoint.Record](ctx context.Context, seq iter.Seq2[T, error], r renderer[T]) error {
	count := 0
	for record, err := range seq {
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(os.Stderr, "Interrupted.")
				break
			}
			return err
		}
		if err := r.write(record); err != nil {
			return err
		}
		count++
	}

	if err := r.flush(); err != nil {
		return err
	}
	if count == 0 {
		fmt.Fprintln(os.Stderr, "No results found.")
	}
	return nil
}

// searchContext returns a context cancelled by SIGINT/SIGTERM. The
// in-flight record and its checkpoint persist finish before the loop
// observes the cancellation.
func searchContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
