package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jarlab/jarlab/internal/store"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var filter store.Filter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved measurements",
		Long: `List saved jar test trials, newest first.

Examples:
  jarlab list
  jarlab list --date 2024-03-15 --site "Plant 1"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				records, err := listFiltered(context.Background(), s, filter)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No measurements yet.")
					fmt.Fprintln(out)
					fmt.Fprintln(out, "Start the lab UI with 'jarlab serve' and save a trial grid.")
					return nil
				}

				// Print table
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tDATE\tOPERATOR\tSITE\tCOMBINATION\tTRIAL\tCOD IN\tCOD OUT\tABATT%\tSLUDGE mL")
				for _, m := range records {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%.1f\t%.1f\t%.1f\t%.1f\n",
						m.ID,
						m.TestDate,
						m.Operator,
						m.Site,
						m.Combination,
						m.Trial,
						m.CODIn,
						m.CODOut,
						m.Abatement,
						m.SludgeML,
					)
				}
				w.Flush()

				fmt.Fprintf(out, "\n%d measurements\n", len(records))
				return nil
			})
		},
	}

	filterFlags(cmd, &filter)
	return cmd
}
