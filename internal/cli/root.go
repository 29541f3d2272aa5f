package cli

import (
	"os"
	"path/filepath"

	"github.com/jarlab/jarlab/internal/applog"
	"github.com/jarlab/jarlab/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dbPath    string
	configDir string
	verbose   bool

	cfg    = config.Default()
	logger = applog.Nop()
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jarlab",
		Short: "jarlab - jar test data entry and reporting for water treatment labs",
		Long: `jarlab records coagulation/flocculation jar tests: reagent dosing,
trial grids, COD abatement and annual reagent costs.
Single Go binary, embedded SQLite, JSON reagent lists.

Running without a subcommand starts the server (same as 'jarlab serve').`,
		PersistentPreRunE: loadSettings,
		SilenceUsage:      true,
		RunE:              runServe, // Default action is to start server
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault(config.EnvDB, config.DefaultDB), "database path")
	cmd.PersistentFlags().StringVar(&configDir, "config-dir", getEnvOrDefault(config.EnvConfigDir, "."), "directory holding jarlab.yaml, .env and the reagent lists")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newServeCmd(),
		newListCmd(),
		newExportCmd(),
		newReportCmd(),
		newReagentsCmd(),
		newParamsCmd(),
		newCalcCmd(),
		newURLCmd(),
		newInitCmd(),
	)
	return cmd
}

func Execute() error {
	return rootCmd.Execute()
}

// loadSettings resolves the config directory files and the logger before any
// command runs. Flags win over the file and environment.
func loadSettings(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(configDir); err != nil {
		return err
	}

	c, err := config.Load(configDir)
	if err != nil {
		return err
	}
	cfg = c
	if !cmd.Flags().Changed("db") {
		dbPath = cfg.DBPath
	}

	l, err := applog.New(verbose)
	if err != nil {
		return err
	}
	logger = l
	logger.Debug("settings loaded",
		zap.String("db", dbPath),
		zap.String("config_dir", configDir),
		zap.Int("port", cfg.Port))
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// tokenFilePath returns the token file written by the server, next to the
// database.
func tokenFilePath() string {
	return filepath.Join(filepath.Dir(dbPath), ".jarlab-token")
}
