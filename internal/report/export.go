package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jarlab/jarlab/internal/stats"
	"github.com/jarlab/jarlab/internal/store"
	"github.com/xuri/excelize/v2"
)

const measurementsSheet = "Measurements"

// WriteCSV dumps records with one header line of column names.
func WriteCSV(w io.Writer, records []*store.Measurement) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(store.ExportColumns()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, m := range records {
		vals := m.Row()
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = fmt.Sprint(v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes records as a workbook with a measurements sheet and a
// per-combination summary sheet.
func WriteXLSX(w io.Writer, records []*store.Measurement) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(measurementsSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}

	header := store.ExportColumns()
	if err := setRow(f, measurementsSheet, 1, toAny(header)); err != nil {
		return err
	}
	for i, m := range records {
		if err := setRow(f, measurementsSheet, i+2, m.Row()); err != nil {
			return err
		}
	}
	if err := f.SetPanes(measurementsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := writeSummarySheet(f, records); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, records []*store.Measurement) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	header := []any{"Combination", "Trials", "Max abatement %", "Mean abatement %", "Best trial", "Best sludge mL"}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, s := range stats.Summarize(records) {
		row := []any{s.Combination, s.Trials, s.MaxAbatement, s.MeanAbatement, s.BestTrial, s.BestSludgeML}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, vals []any) error {
	for col, v := range vals {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
