package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jarlab/jarlab/internal/config"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a jarlab.yaml with the built-in defaults",
		Long: `Write jarlab.yaml into the config directory so the defaults (port,
trial count, dose steps, treatment figures) can be edited by hand.
Environment overrides and the access token are not written.

Example:
  jarlab init --config-dir /srv/jarlab`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(configDir, config.FileName)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to check %s: %w", path, err)
			}

			if err := config.Default().Save(configDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing jarlab.yaml")
	return cmd
}
