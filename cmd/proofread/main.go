// Command proofread checks official documents with a language model and
// reconciles the reported issues with the document text.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"proofread/internal/analyzer"
	"proofread/internal/anchor"
	"proofread/internal/config"
	"proofread/internal/logging"
	"proofread/internal/normalize"
	"proofread/internal/perception"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	// Loaded by PersistentPreRunE
	cfg *config.Config

	// newClient builds the model client; tests swap it for a fake.
	newClient = perception.NewClientFromConfig
)

var rootCmd = &cobra.Command{
	Use:   "proofread",
	Short: "Proofread official documents with an LLM",
	Long: `proofread sends a document to a language model, then reconciles the
issues it reports with the document text: every issue gets a valid,
deduplicated id and a range that points at the quoted text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded

		opts := cfg.Logging.Options()
		if verbose {
			opts.DebugMode = true
		}
		if err := logging.Initialize(opts); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.BootDebug("config loaded from %s (provider=%s)", cfgPath, cfg.LLM.Provider)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigFileName, "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(checkCmd, reconcileCmd, serveCmd, watchCmd, traceCmd, configCmd)
}

// newEngine builds the reconciliation engine from the analysis settings.
func newEngine(c *config.Config) *analyzer.Engine {
	return analyzer.NewEngine(normalize.New(
		normalize.WithResolver(anchor.NewResolver(c.Analysis.WindowRadius)),
	))
}

// newAnalyzer builds an analyzer with a validated model client. A non-nil
// store records every model call.
func newAnalyzer(ctx context.Context, c *config.Config, store perception.TraceStore) (*analyzer.Analyzer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	client, err := newClient(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	return analyzer.New(perception.NewTracingClient(client, store), newEngine(c)), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
