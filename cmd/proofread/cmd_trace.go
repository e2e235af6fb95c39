package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"proofread/internal/perception"
	"proofread/internal/store"
)

var (
	traceLimit  int
	traceFormat string
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect model calls recorded by check --trace",
}

var traceListCmd = &cobra.Command{
	Use:   "list DB",
	Short: "List recorded traces, newest first",
	Long: `Lists the traces in a SQLite trace database. The id column is what
reconcile --trace DB --trace-id ID expects.`,
	Args: cobra.ExactArgs(1),
	RunE: runTraceList,
}

func init() {
	traceListCmd.Flags().IntVarP(&traceLimit, "limit", "n", 20, "Maximum number of traces")
	traceListCmd.Flags().StringVarP(&traceFormat, "format", "f", formatText, "Output format: json or text")
	traceCmd.AddCommand(traceListCmd)
}

// traceSummary is the listing view of a trace; prompts and responses are
// reduced to their lengths.
type traceSummary struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Model       string    `json:"model,omitempty"`
	Success     bool      `json:"success"`
	DurationMs  int64     `json:"duration_ms"`
	PromptLen   int       `json:"prompt_len"`
	ResponseLen int       `json:"response_len"`
	Error       string    `json:"error,omitempty"`
}

func summarize(tr perception.Trace) traceSummary {
	return traceSummary{
		ID:          tr.ID,
		Timestamp:   tr.Timestamp,
		Model:       tr.Model,
		Success:     tr.Success,
		DurationMs:  tr.DurationMs,
		PromptLen:   len([]rune(tr.UserPrompt)),
		ResponseLen: len([]rune(tr.Response)),
		Error:       tr.ErrorMessage,
	}
}

func runTraceList(cmd *cobra.Command, args []string) error {
	if traceFormat != formatJSON && traceFormat != formatText {
		return fmt.Errorf("unknown format %q (valid: %s, %s)", traceFormat, formatJSON, formatText)
	}
	if !isTraceDB(args[0]) {
		return fmt.Errorf("%s is not a trace database (.db, .sqlite, .sqlite3)", args[0])
	}

	ts, err := store.Open(args[0])
	if err != nil {
		return err
	}
	defer ts.Close()

	traces, err := ts.Recent(traceLimit)
	if err != nil {
		return err
	}
	summaries := make([]traceSummary, 0, len(traces))
	for _, tr := range traces {
		summaries = append(summaries, summarize(tr))
	}

	if traceFormat == formatJSON {
		return writeJSON(cmd.OutOrStdout(), summaries)
	}
	writeTraceList(cmd.OutOrStdout(), summaries)
	return nil
}

func writeTraceList(w io.Writer, summaries []traceSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, posStyle.Render("no traces"))
		return
	}
	for _, s := range summaries {
		status := suggestionStyle.Render("ok")
		if !s.Success {
			status = errorStyle.Render("failed")
		}
		fmt.Fprintf(w, "%s  %s  %s  %6dms  prompt=%d response=%d",
			s.ID, posStyle.Render(s.Timestamp.Local().Format(time.DateTime)), status,
			s.DurationMs, s.PromptLen, s.ResponseLen)
		if s.Model != "" {
			fmt.Fprintf(w, "  %s", s.Model)
		}
		if s.Error != "" {
			fmt.Fprintf(w, "  %s", errorStyle.Render(s.Error))
		}
		fmt.Fprintln(w)
	}
}
