package cli

import (
	"fmt"
	"strings"

	"github.com/jarlab/jarlab/internal/parameter"
	"github.com/spf13/cobra"
)

func newParamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show or change the measured parameters",
		Long: `The selected parameters decide which raw-water fields and trial grid
columns the lab UI shows. COD and pH are always part of the grid.

Examples:
  jarlab params show
  jarlab params set Turbidity Color "Residual iron"`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List parameters and whether they are selected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := loadSelection()
			out := cmd.OutOrStdout()
			for _, p := range sel.Available {
				mark := " "
				if sel.Has(p) {
					mark = "x"
				}
				unit := p.Unit()
				if unit != "" {
					unit = " (" + unit + ")"
				}
				fmt.Fprintf(out, "[%s] %s%s\n", mark, p, unit)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <parameter>...",
		Short: "Replace the selection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selected := make([]parameter.Parameter, 0, len(args))
			for _, a := range args {
				p, err := parameter.Parse(a)
				if err != nil {
					return err
				}
				selected = append(selected, p)
			}

			sel := loadSelection()
			sel.Set(selected)
			if err := paramStore().Save(sel); err != nil {
				return fmt.Errorf("failed to save parameters: %w", err)
			}

			names := make([]string, len(sel.Selected))
			for i, p := range sel.Selected {
				names[i] = string(p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Selected: %s\n", strings.Join(names, ", "))
			return nil
		},
	})

	return cmd
}
