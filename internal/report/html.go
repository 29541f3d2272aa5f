package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/report.html
var templates embed.FS

var reportTmpl = template.Must(template.ParseFS(templates, "templates/report.html"))

type htmlData struct {
	Title  string
	Header []string
	Report *Report
}

// WriteHTML renders the report as a standalone HTML page.
func WriteHTML(w io.Writer, r *Report) error {
	if err := reportTmpl.Execute(w, htmlData{Title: Title, Header: TableHeader, Report: r}); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
