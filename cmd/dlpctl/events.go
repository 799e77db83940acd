package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dlpctl/pkg/api"
	"dlpctl/pkg/checkpoint"
	"dlpctl/pkg/cursor"
	"dlpctl/pkg/query"
)

var eventsCmd = &cobra.Command{
	Use:   "file-events",
	Short: "Search file events",
}

var (
	eventSearchFlags searchFlags

	eventFilterAction   string
	eventFilterFileName string
	eventFilterCategory string
	eventFilterUser     string
	eventFilterHash     string
	eventFilterSeverity string
)

var eventsSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search file events",
	Long: `Search file events. Filter options narrow the results; one of
--start, --end, or --on is required unless --advanced-query or an
existing checkpoint supplies the time bound.`,
	Args: cobra.NoArgs,
	RunE: runEventsSearch,
}

var eventsClearCheckpointCmd = &cobra.Command{
	Use:   "clear-checkpoint <checkpoint-name>",
	Short: "Remove a saved file-events search checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventsClearCheckpoint,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsSearchCmd)
	eventsCmd.AddCommand(eventsClearCheckpointCmd)

	eventSearchFlags.register(eventsSearchCmd)
	eventsSearchCmd.Flags().StringVar(&eventFilterAction, "event-action", "", "filter by event action")
	eventsSearchCmd.Flags().StringVar(&eventFilterFileName, "file-name", "", "filter by file name")
	eventsSearchCmd.Flags().StringVar(&eventFilterCategory, "file-category", "", "filter by file category")
	eventsSearchCmd.Flags().StringVar(&eventFilterUser, "user", "", "filter by user email")
	eventsSearchCmd.Flags().StringVar(&eventFilterHash, "sha256", "", "filter by file SHA-256")
	eventsSearchCmd.Flags().StringVar(&eventFilterSeverity, "risk-severity", "", "filter by risk severity")
}

var eventColumns = map[string]func(*api.FileEvent) string{
	"event_id":        func(e *api.FileEvent) string { return e.EventID },
	"timestamp":       func(e *api.FileEvent) string { return formatTime(e.Timestamp) },
	"event_action":    func(e *api.FileEvent) string { return e.EventAction },
	"file_name":       func(e *api.FileEvent) string { return e.FileName },
	"file_path":       func(e *api.FileEvent) string { return e.FilePath },
	"file_category":   func(e *api.FileEvent) string { return e.FileCategory },
	"file_size":       func(e *api.FileEvent) string { return strconv.FormatInt(e.FileSizeBytes, 10) },
	"sha256":          func(e *api.FileEvent) string { return e.FileHash },
	"user":            func(e *api.FileEvent) string { return e.UserEmail },
	"device":          func(e *api.FileEvent) string { return e.DeviceName },
	"risk_score":      func(e *api.FileEvent) string { return strconv.FormatFloat(e.RiskScore, 'f', -1, 64) },
	"risk_severity":   func(e *api.FileEvent) string { return e.RiskSeverity },
	"risk_indicators": func(e *api.FileEvent) string { return strings.Join(e.RiskIndicators, ",") },
	"risk_trusted":    func(e *api.FileEvent) string { return strconv.FormatBool(e.RiskTrusted) },
}

var eventDefaultColumns = []string{
	"timestamp", "event_action", "file_name", "user", "risk_severity", "event_id",
}

func runEventsSearch(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	store, err := cursor.NewStore(cfg.API.ClientID, "file_events")
	if err != nil {
		return err
	}

	q, err := buildQuery(query.DomainFileEvents, &eventSearchFlags, map[string]string{
		"event.action":     eventFilterAction,
		"file.name":        eventFilterFileName,
		"file.category":    eventFilterCategory,
		"user.email":       eventFilterUser,
		"file.hash.sha256": eventFilterHash,
		"risk.severity":    eventFilterSeverity,
	})
	if err != nil {
		return err
	}
	q, err = seedFromCheckpoint(store, eventSearchFlags.checkpointName, q)
	if err != nil {
		return err
	}

	r, err := newRenderer(&eventSearchFlags, eventDefaultColumns, eventColumns)
	if err != nil {
		return err
	}

	ctx, stop := searchContext()
	defer stop()

	seq := client.FileEvents().Search(ctx, q)
	if eventSearchFlags.checkpointName != "" {
		seq = checkpoint.Follow(store, eventSearchFlags.checkpointName, seq)
	}
	return runSearch(ctx, seq, r)
}

func runEventsClearCheckpoint(cmd *cobra.Command, args []string) error {
	if err := resolveCredentials(); err != nil {
		return err
	}
	store, err := cursor.NewStore(cfg.API.ClientID, "file_events")
	if err != nil {
		return err
	}
	return store.Delete(args[0])
}
