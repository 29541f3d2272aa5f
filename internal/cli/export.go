package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jarlab/jarlab/internal/report"
	"github.com/jarlab/jarlab/internal/store"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		format string
		output string
		filter store.Filter
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved measurements",
		Long: `Export the measurement table in CSV, JSON or Excel format.

Examples:
  jarlab export --format csv > measurements.csv
  jarlab export --format json --site "Plant 1"
  jarlab export --format xlsx --output jar_tests.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "json" && format != "xlsx" {
				return fmt.Errorf("invalid format: must be 'csv', 'json' or 'xlsx'")
			}

			return withStore(func(s *store.SQLiteStore) error {
				records, err := listFiltered(context.Background(), s, filter)
				if err != nil {
					return err
				}

				return writeOutput(cmd, output, func(w io.Writer) error {
					switch format {
					case "csv":
						return report.WriteCSV(w, records)
					case "xlsx":
						return report.WriteXLSX(w, records)
					}
					return exportJSON(w, records)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format (csv, json or xlsx)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	filterFlags(cmd, &filter)
	return cmd
}

type jsonExport struct {
	Measurements []map[string]any `json:"measurements"`
}

func exportJSON(w io.Writer, records []*store.Measurement) error {
	export := jsonExport{
		Measurements: make([]map[string]any, len(records)),
	}
	for i, m := range records {
		export.Measurements[i] = m.Record()
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// writeOutput runs fn against the named file, or stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}
