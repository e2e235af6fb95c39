package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"proofread/internal/extract"
	"proofread/internal/logging"
	"proofread/internal/perception"
	"proofread/internal/store"
)

var (
	reconcileText    string
	reconcilePayload string
	reconcileTraceDB string
	reconcileTraceID string
	reconcileFormat  string
	reconcileSummary bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile --text FILE (--payload FILE | --trace DB [--trace-id ID])",
	Short: "Reconcile a saved model response with a document (offline)",
	Long: `Runs only the reconciliation engine: the payload is a raw model response,
read from a file or from a trace recorded by check --trace into a SQLite
database. Without --trace-id the newest trace is used; "trace list" shows
the others. No model is called and no API key is needed.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileText, "text", "", "Document file (required)")
	reconcileCmd.Flags().StringVar(&reconcilePayload, "payload", "", "Model response file")
	reconcileCmd.Flags().StringVar(&reconcileTraceDB, "trace", "", "Trace database to read the response from")
	reconcileCmd.Flags().StringVar(&reconcileTraceID, "trace-id", "", "Trace id within --trace (default: newest)")
	reconcileCmd.Flags().StringVarP(&reconcileFormat, "format", "f", formatJSON, "Output format: json, text or markdown")
	reconcileCmd.Flags().BoolVar(&reconcileSummary, "summary", false, "Print a reconciliation summary to stderr")
	reconcileCmd.MarkFlagRequired("text")
	reconcileCmd.MarkFlagsMutuallyExclusive("payload", "trace")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if err := checkFormat(reconcileFormat); err != nil {
		return err
	}
	payload, err := loadPayload()
	if err != nil {
		return err
	}
	text, err := extract.File(reconcileText)
	if err != nil {
		return err
	}

	rec := newEngine(cfg).Reconcile(text, payload)

	if reconcileSummary {
		r := rec.Report
		fmt.Fprintf(cmd.ErrOrStderr(),
			"method=%s total=%d local=%d global=%d unresolved=%d no_span=%d clamped=%d collapsed=%d generated_ids=%d dropped=%d\n",
			rec.Method, r.Total, r.ResolvedLocal, r.ResolvedGlobal, r.Unresolved, r.NoSpan,
			r.Clamped, r.Collapsed, r.GeneratedIDs, rec.Dropped)
	}
	return writeIssues(cmd.OutOrStdout(), reconcileFormat, text, rec.Issues)
}

func loadPayload() (string, error) {
	if reconcileTraceID != "" && reconcileTraceDB == "" {
		return "", fmt.Errorf("--trace-id requires --trace")
	}
	switch {
	case reconcilePayload != "":
		data, err := os.ReadFile(reconcilePayload)
		if err != nil {
			return "", fmt.Errorf("failed to read payload: %w", err)
		}
		return string(data), nil
	case reconcileTraceDB != "":
		ts, err := store.Open(reconcileTraceDB)
		if err != nil {
			return "", err
		}
		defer ts.Close()
		var trace *perception.Trace
		if reconcileTraceID != "" {
			trace, err = ts.Get(reconcileTraceID)
		} else {
			trace, err = ts.Latest()
		}
		if err != nil {
			return "", err
		}
		logging.BootDebug("reconciling trace %s from %s", trace.ID, reconcileTraceDB)
		return trace.Response, nil
	}
	return "", fmt.Errorf("one of --payload or --trace is required")
}
