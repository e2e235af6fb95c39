package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"proofread/internal/logging"
	"proofread/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the proofreading API over HTTP",
	Long: `Starts the HTTP API:
  POST /analyze  {"text": "..."} -> {"issues": [...]}
  GET  /healthz  liveness probe

Stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newAnalyzer(ctx, cfg, nil)
	if err != nil {
		return err
	}

	settings := server.SettingsFromConfig(cfg)
	if serveAddr != "" {
		settings.Addr = serveAddr
	}
	logging.Boot("starting server on %s (provider=%s model=%s)", settings.Addr, cfg.LLM.Provider, cfg.GetModel())
	return server.New(settings, a).ListenAndServe(ctx)
}
