package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// WritePDF renders the report as an A4 document.
func WritePDF(w io.Writer, r *Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// core fonts are cp1252; this maps ³, µ and accented names
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, tr(Title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdfFields(pdf, tr, "General information", r.General)
	pdfFields(pdf, tr, "Test parameters", r.Protocol)
	if len(r.RawWater) > 0 {
		pdfFields(pdf, tr, "Raw water characteristics", r.RawWater)
	}
	pdfFields(pdf, tr, "Treatment information", r.Treatment)

	if len(r.Tables) > 0 {
		pdfHeading(pdf, tr, "Trial tables")
	}
	widths := []float64{14, 22, 22, 22, 22, 22, 22, 22, 22}
	for _, t := range r.Tables {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(190, 7, tr("Combination: "+t.Combination))
		pdf.Ln(8)

		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(173, 216, 230)
		for i, h := range TableHeader {
			pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 7)
		pdf.SetFillColor(245, 245, 220)
		for _, row := range t.Rows {
			for i, c := range row.Cells() {
				pdf.CellFormat(widths[i], 6, c, "1", 0, "C", true, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	if r.Best != nil {
		pdfHeading(pdf, tr, "Best result")
		pdf.SetFont("Arial", "", 10)
		for _, f := range r.Best.Fields() {
			pdf.SetFillColor(144, 238, 144)
			pdf.CellFormat(60, 7, tr(f.Label), "1", 0, "L", true, 0, "")
			pdf.SetFillColor(255, 255, 224)
			pdf.CellFormat(130, 7, tr(f.Value), "1", 1, "L", true, 0, "")
		}
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 8)
	pdf.Cell(190, 6, tr(r.Footer()))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

func pdfHeading(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(190, 8, tr(title))
	pdf.Ln(9)
}

func pdfFields(pdf *gofpdf.Fpdf, tr func(string) string, title string, fields []Field) {
	pdfHeading(pdf, tr, title)
	pdf.SetFont("Arial", "", 10)
	for _, f := range fields {
		pdf.SetFillColor(173, 216, 230)
		pdf.CellFormat(60, 7, tr(f.Label), "1", 0, "L", true, 0, "")
		pdf.SetFillColor(245, 245, 220)
		pdf.CellFormat(130, 7, tr(f.Value), "1", 1, "L", true, 0, "")
	}
	pdf.Ln(4)
}
