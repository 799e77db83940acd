package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dlpctl/pkg/api"
	"dlpctl/pkg/bulk"
	"dlpctl/pkg/checkpoint"
	"dlpctl/pkg/cursor"
	"dlpctl/pkg/logger"
	"dlpctl/pkg/output"
	"dlpctl/pkg/query"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "View and manage alerts",
}

var (
	alertSearchFlags searchFlags

	alertFilterAlertID  string
	alertFilterType     string
	alertFilterName     string
	alertFilterActor    string
	alertFilterActorID  string
	alertFilterSeverity string
	alertFilterState    string
	alertFilterRuleID   string
	alertFilterAlertSev string
)

var alertsSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search alerts",
	Long: `Search alerts. Filter options narrow the results; one of --start,
--end, or --on is required unless --advanced-query or an existing
checkpoint supplies the time bound.

With --checkpoint <name>, only results not yet seen by that checkpoint
are returned, and progress is saved after every record. Filter options
are not stored with the checkpoint and must be repeated on each run.`,
	Args: cobra.NoArgs,
	RunE: runAlertsSearch,
}

var alertShowFormat string

var alertsShowCmd = &cobra.Command{
	Use:   "show <alert-id>",
	Short: "Show the details of a single alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsShow,
}

var alertUpdateNote string

var alertsUpdateStateCmd = &cobra.Command{
	Use:   "update-state <alert-id> <state>",
	Short: "Change the state of an alert, optionally adding a note",
	Args:  cobra.ExactArgs(2),
	RunE:  runAlertsUpdateState,
}

var alertsAddNoteCmd = &cobra.Command{
	Use:   "add-note <alert-id> <note>",
	Short: "Add a note to an alert",
	Args:  cobra.ExactArgs(2),
	RunE:  runAlertsAddNote,
}

var (
	bulkInputFormat string
	bulkState       string
	bulkNote        string
)

var alertsBulkUpdateStateCmd = &cobra.Command{
	Use:   "bulk-update-state <file>",
	Short: "Bulk update alert states from CSV or JSON Lines input",
	Long: `Bulk update multiple alerts from CSV or JSON Lines input. Use "-"
to read from stdin, so search output pipes straight in:

  dlpctl alerts search --end 2026-01-01 --state PENDING --format json-lines |
    dlpctl alerts bulk-update-state - --state RESOLVED --note "stale"

The --state and --note options override the respective columns/keys of
the input. Without --state, every input row must carry a state.`,
	Args: cobra.ExactArgs(1),
	RunE: runAlertsBulkUpdateState,
}

var alertsClearCheckpointCmd = &cobra.Command{
	Use:   "clear-checkpoint <checkpoint-name>",
	Short: "Remove a saved alerts search checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsClearCheckpoint,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsSearchCmd)
	alertsCmd.AddCommand(alertsShowCmd)
	alertsCmd.AddCommand(alertsUpdateStateCmd)
	alertsCmd.AddCommand(alertsAddNoteCmd)
	alertsCmd.AddCommand(alertsBulkUpdateStateCmd)
	alertsCmd.AddCommand(alertsClearCheckpointCmd)

	alertSearchFlags.register(alertsSearchCmd)
	alertsSearchCmd.Flags().StringVar(&alertFilterAlertID, "alert-id", "", "filter by alert id")
	alertsSearchCmd.Flags().StringVar(&alertFilterType, "type", "", "filter by alert rule type")
	alertsSearchCmd.Flags().StringVar(&alertFilterName, "name", "", "filter by alert rule name")
	alertsSearchCmd.Flags().StringVar(&alertFilterActor, "actor", "", "filter by actor username")
	alertsSearchCmd.Flags().StringVar(&alertFilterActorID, "actor-id", "", "filter by actor id")
	alertsSearchCmd.Flags().StringVar(&alertFilterSeverity, "risk-severity", "", "filter by risk severity")
	alertsSearchCmd.Flags().StringVar(&alertFilterState, "state", "", "filter by alert state")
	alertsSearchCmd.Flags().StringVar(&alertFilterRuleID, "rule-id", "", "filter by rule id")
	alertsSearchCmd.Flags().StringVar(&alertFilterAlertSev, "alert-severity", "", "filter by alert severity")

	alertsShowCmd.Flags().StringVar(&alertShowFormat, "format", "json", "output format (json, raw-json)")
	alertsUpdateStateCmd.Flags().StringVar(&alertUpdateNote, "note", "", "note recording the reason for the state change")
	alertsBulkUpdateStateCmd.Flags().StringVar(&bulkInputFormat, "input-format", "csv", "input format (csv, json-lines)")
	alertsBulkUpdateStateCmd.Flags().StringVar(&bulkState, "state", "", "override the input state value")
	alertsBulkUpdateStateCmd.Flags().StringVar(&bulkNote, "note", "", "override the input note value")
}

var alertColumns = map[string]func(*api.Alert) string{
	"id":                     func(a *api.Alert) string { return a.ID },
	"created_at":             func(a *api.Alert) string { return formatTime(a.CreatedAt) },
	"type":                   func(a *api.Alert) string { return a.Type },
	"name":                   func(a *api.Alert) string { return a.Name },
	"description":            func(a *api.Alert) string { return a.Description },
	"actor":                  func(a *api.Alert) string { return a.Actor },
	"actor_id":               func(a *api.Alert) string { return a.ActorID },
	"state":                  func(a *api.Alert) string { return a.State },
	"risk_severity":          func(a *api.Alert) string { return a.RiskSeverity },
	"alert_severity":         func(a *api.Alert) string { return a.AlertSeverity },
	"rule_id":                func(a *api.Alert) string { return a.RuleID },
	"watchlists":             func(a *api.Alert) string { return strings.Join(a.Watchlists, ",") },
	"state_last_modified_by": func(a *api.Alert) string { return a.StateLastModifiedBy },
	"state_last_modified_at": func(a *api.Alert) string { return formatTime(a.StateLastModifiedAt) },
}

var alertDefaultColumns = []string{
	"created_at", "risk_severity", "state", "actor", "name", "id",
}

func runAlertsSearch(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	store, err := cursor.NewStore(cfg.API.ClientID, "alerts")
	if err != nil {
		return err
	}

	q, err := buildQuery(query.DomainAlerts, &alertSearchFlags, map[string]string{
		query.AlertFieldAlertID:       alertFilterAlertID,
		query.AlertFieldType:          alertFilterType,
		query.AlertFieldName:          alertFilterName,
		query.AlertFieldActor:         alertFilterActor,
		query.AlertFieldActorID:       alertFilterActorID,
		query.AlertFieldRiskSeverity:  alertFilterSeverity,
		query.AlertFieldState:         alertFilterState,
		query.AlertFieldRuleID:        alertFilterRuleID,
		query.AlertFieldAlertSeverity: alertFilterAlertSev,
	})
	if err != nil {
		return err
	}
	q, err = seedFromCheckpoint(store, alertSearchFlags.checkpointName, q)
	if err != nil {
		return err
	}

	r, err := newRenderer(&alertSearchFlags, alertDefaultColumns, alertColumns)
	if err != nil {
		return err
	}

	ctx, stop := searchContext()
	defer stop()

	seq := client.Alerts().Search(ctx, q)
	if alertSearchFlags.checkpointName != "" {
		seq = checkpoint.Follow(store, alertSearchFlags.checkpointName, seq)
	}
	return runSearch(ctx, seq, r)
}

func runAlertsShow(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	alert, err := client.Alerts().Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	switch alertShowFormat {
	case "json":
		return output.NewJSON(os.Stdout).WriteObject(alert)
	case "raw-json":
		return output.NewJSONLines(os.Stdout).WriteObject(alert)
	default:
		return fmt.Errorf("unknown format: %s", alertShowFormat)
	}
}

func runAlertsUpdateState(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	state := strings.ToUpper(args[1])
	if err := client.Alerts().ChangeState(context.Background(), []string{args[0]}, state, alertUpdateNote); err != nil {
		return err
	}
	fmt.Println("State changed successfully.")
	return nil
}

func runAlertsAddNote(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	if err := client.Alerts().AddNote(context.Background(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Println("Note added.")
	return nil
}

func runAlertsBulkUpdateState(cmd *cobra.Command, args []string) error {
	var in io.Reader
	if args[0] == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var updates []bulk.Update
	var err error
	switch bulkInputFormat {
	case "csv":
		updates, err = bulk.ReadCSV(in)
	case "json-lines":
		updates, err = bulk.ReadJSONLines(in)
	default:
		return fmt.Errorf("unknown input format: %s", bulkInputFormat)
	}
	if err != nil {
		return err
	}

	batches, err := bulk.Group(updates, strings.ToUpper(bulkState), bulkNote)
	if err != nil {
		return err
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	ctx, stop := searchContext()
	defer stop()

	result, err := bulk.Apply(ctx, client.Alerts(), batches, logger.GetLogger())
	if err != nil {
		return err
	}

	fmt.Printf("%d alerts updated.\n", result.Updated)
	if len(result.Failed) > 0 {
		fmt.Fprintf(os.Stderr, "%d alerts not found: %s\n", len(result.Failed), strings.Join(result.Failed, ", "))
		return fmt.Errorf("%s alerts could not be updated", strconv.Itoa(len(result.Failed)))
	}
	return nil
}

func runAlertsClearCheckpoint(cmd *cobra.Command, args []string) error {
	if err := resolveCredentials(); err != nil {
		return err
	}
	store, err := cursor.NewStore(cfg.API.ClientID, "alerts")
	if err != nil {
		return err
	}
	return store.Delete(args[0])
}
