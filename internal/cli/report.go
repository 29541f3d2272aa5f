package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jarlab/jarlab/internal/report"
	"github.com/jarlab/jarlab/internal/store"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var (
		format string
		output string
		filter store.Filter
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a jar test report from saved measurements",
		Long: `Build the report of one jar test (date, operator and site) from the
database alone. Commercial doses are recovered from the saved volumes with
the current reagent definitions; annual costs use the treatment defaults of
jarlab.yaml.

PDF reports are written to jar_test_report_<date>.pdf unless --output is set.

Examples:
  jarlab report --date 2024-03-15 --site "Plant 1"
  jarlab report --date 2024-03-15 --format pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if filter.TestDate == "" {
				return fmt.Errorf("--date is required")
			}

			var write func(io.Writer, *report.Report) error
			ext := format
			switch format {
			case "text":
				write, ext = report.WriteText, "txt"
			case "html":
				write = report.WriteHTML
			case "pdf":
				write = report.WritePDF
			default:
				return fmt.Errorf("invalid format: must be 'text', 'html' or 'pdf'")
			}

			return withStore(func(s *store.SQLiteStore) error {
				records, err := listFiltered(context.Background(), s, filter)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					return fmt.Errorf("no measurements for %s", filter.TestDate)
				}

				rep, err := report.FromRecords(records, loadSelection(), loadLists(), cfg.Treatment, time.Now())
				if err != nil {
					return err
				}

				if output == "" && format == "pdf" {
					output = rep.FileName(ext)
				}
				return writeOutput(cmd, output, func(w io.Writer) error {
					return write(w, rep)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "report format (text, html or pdf)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	filterFlags(cmd, &filter)
	return cmd
}
