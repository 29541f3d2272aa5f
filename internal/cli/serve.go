package cli

import (
	"github.com/jarlab/jarlab/internal/server"
	"github.com/jarlab/jarlab/internal/store"
	"github.com/spf13/cobra"
)

var (
	port  int
	quiet bool
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the lab web UI",
		Long: `Start the jarlab HTTP server.

The server provides:
  - Jar test entry form with per-combination trial grids
  - Reagent and parameter configuration
  - Database browser with CSV and Excel export
  - HTML, PDF and text reports
  - Health check and Prometheus metrics

Example:
  jarlab serve --port 8080`,
		RunE: runServe,
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from JARLAB_PORT, jarlab.yaml or 8080)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the startup banner")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	if port == 0 {
		port = cfg.Port
	}

	return withStore(func(s *store.SQLiteStore) error {
		srv := server.New(s, server.Options{
			Port:        port,
			Token:       cfg.Token,
			TokenFile:   tokenFilePath(),
			ConfigDir:   configDir,
			Sessions:    cfg.SessionDefaults(),
			SessionIdle: cfg.SessionIdle,
			Logger:      logger,
		})
		if quiet {
			return srv.StartQuiet()
		}
		return srv.Start()
	})
}
