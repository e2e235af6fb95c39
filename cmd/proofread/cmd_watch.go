package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"proofread/internal/logging"
	"proofread/internal/watch"
)

var watchFormat string

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Re-proofread a file every time it is saved",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", formatText, "Output format: json, text or markdown")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := checkFormat(watchFormat); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newAnalyzer(ctx, cfg, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	check := func(ctx context.Context, path string) {
		rep := checkFile(ctx, a, path)
		if err := writeReports(out, watchFormat, []fileReport{rep}); err != nil {
			logging.WatchError("write report: %v", err)
		}
	}

	w, err := watch.New(args[0], cfg.GetWatchDebounce(), check)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to watch %s: %w", args[0], err)
	}
	defer w.Stop()

	// first pass before any change
	w.Trigger()

	<-ctx.Done()
	return nil
}
