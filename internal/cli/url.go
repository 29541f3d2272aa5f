package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url",
		Short: "Show the lab UI login URL",
		Long:  `Show the login URL of the running server (for when you've scrolled past it).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(tokenFilePath())
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("no server running (token file not found)\nStart the server with: jarlab serve")
				}
				return fmt.Errorf("failed to read token file: %w", err)
			}

			token := string(data)
			if token == "" {
				return fmt.Errorf("token file is empty")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "http://localhost:%d/?token=%s\n", cfg.Port, token)
			return nil
		},
	}
}
