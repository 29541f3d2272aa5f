package report

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer groups thousands in large volumes and costs.
var printer = message.NewPrinter(language.English)

const generatedLayout = "02/01/2006 at 15:04"

// Footer is the generation line printed at the end of every document.
func (r *Report) Footer() string {
	return "Report generated automatically on " + r.GeneratedAt.Format(generatedLayout)
}

// FileName is the download name of the report in the given extension.
func (r *Report) FileName(ext string) string {
	return fmt.Sprintf("jar_test_report_%s.%s", r.TestDate, ext)
}

// ExportFileName is the download name of a full database export.
func ExportFileName(now time.Time, ext string) string {
	return fmt.Sprintf("jar_test_database_%s.%s", now.Format("20060102"), ext)
}

func formatMoney(v float64) string {
	return printer.Sprintf("%.2f", v)
}

func formatKg(v float64) string {
	return printer.Sprintf("%.1f kg/yr", v)
}
