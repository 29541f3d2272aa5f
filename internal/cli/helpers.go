package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jarlab/jarlab/internal/parameter"
	"github.com/jarlab/jarlab/internal/reagent"
	"github.com/jarlab/jarlab/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// withStore opens the database, executes the function, and handles cleanup.
func withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

func catalog() *reagent.Catalog {
	return reagent.NewCatalog(configDir)
}

func paramStore() *parameter.FileStore {
	return parameter.NewFileStore(filepath.Join(configDir, parameter.FileName))
}

// loadLists reads both reagent lists, logging any fallback to the built-in
// defaults.
func loadLists() reagent.Lists {
	lists, errs := catalog().Load()
	for _, err := range errs {
		logger.Debug("reagent list fallback", zap.Error(err))
	}
	return lists
}

func loadSelection() parameter.Selection {
	sel, err := paramStore().Load()
	if err != nil {
		logger.Debug("parameter selection fallback", zap.Error(err))
	}
	return sel
}

// filterFlags binds the record filter shared by list, export and report.
func filterFlags(cmd *cobra.Command, f *store.Filter) {
	cmd.Flags().StringVar(&f.TestDate, "date", "", "only this test date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.Operator, "operator", "", "only this operator")
	cmd.Flags().StringVar(&f.Site, "site", "", "only this sampling site")
	cmd.Flags().StringVar(&f.Combination, "combination", "", "only this reagent combination label")
}

func listFiltered(ctx context.Context, s *store.SQLiteStore, f store.Filter) ([]*store.Measurement, error) {
	records, err := s.ListMeasurements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list measurements: %w", err)
	}
	return f.Apply(records), nil
}
