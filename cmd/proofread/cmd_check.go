package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"proofread/internal/analyzer"
	"proofread/internal/extract"
	"proofread/internal/logging"
	"proofread/internal/perception"
	"proofread/internal/store"
)

var (
	outputFormat string
	tracePath    string
)

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Proofread documents (.docx, .html, .txt, .md)",
	Long: `Extracts the text of each file, asks the model for issues and prints the
reconciled issues. Files are analyzed concurrently, up to
analysis.max_concurrency at a time; output keeps the argument order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&outputFormat, "format", "f", formatJSON, "Output format: json, text or markdown")
	checkCmd.Flags().StringVar(&tracePath, "trace", "", "Record model calls (.db/.sqlite: SQLite, otherwise JSONL)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := checkFormat(outputFormat); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	traces, closeTraces, err := openTraceStore(tracePath)
	if err != nil {
		return err
	}
	defer closeTraces()

	a, err := newAnalyzer(ctx, cfg, traces)
	if err != nil {
		return err
	}

	reports := checkFiles(ctx, a, args, cfg.GetMaxConcurrency())
	if err := writeReports(cmd.OutOrStdout(), outputFormat, reports); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(reports))
	}
	return nil
}

// checkFiles analyzes paths with at most limit in flight. Individual
// failures are recorded in the reports; the group itself never fails.
func checkFiles(ctx context.Context, a *analyzer.Analyzer, paths []string, limit int) []fileReport {
	reports := make([]fileReport, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			reports[i] = checkFile(gctx, a, path)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func checkFile(ctx context.Context, a *analyzer.Analyzer, path string) fileReport {
	text, err := extract.File(path)
	if err != nil {
		logging.Get(logging.CategoryExtract).Error("%v", err)
		return fileReport{File: path, Status: "extract_failed", Error: err.Error(), Issues: emptyIssues()}
	}

	res := a.Analyze(ctx, text)
	rep := fileReport{
		File:   path,
		Status: res.Status.String(),
		Issues: res.IssuesOrEmpty(),
		text:   text,
	}
	if !res.OK() {
		logging.AnalyzerWarn("%s: %v", path, res.Err)
		rep.Error = res.Err.Error()
	}
	return rep
}

// openTraceStore opens the trace sink at path: a SQLite database for .db,
// .sqlite and .sqlite3 files, a JSONL file otherwise. An empty path
// disables tracing.
func openTraceStore(path string) (perception.TraceStore, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	if isTraceDB(path) {
		ts, err := store.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return ts, func() { _ = ts.Close() }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	return perception.NewJSONLTraceStore(f), func() { _ = f.Close() }, nil
}

func isTraceDB(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}
