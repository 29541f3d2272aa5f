package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// TableHeader is the column set of a combination table.
var TableHeader = []string{"Trial", "Coag (ppm)", "Coag (active)", "Floc (ppm)", "Floc (active)", "COD in", "COD out", "Abatt%", "Sludge mL"}

// Cells formats a row the way every renderer shows it.
func (t TrialRow) Cells() []string {
	return []string{
		fmt.Sprintf("%d", t.Trial),
		fmt.Sprintf("%.1f", t.CoagPPM),
		fmt.Sprintf("%.1f", t.CoagActive),
		fmt.Sprintf("%.1f", t.FlocPPM),
		fmt.Sprintf("%.1f", t.FlocActive),
		fmt.Sprintf("%.0f", t.CODIn),
		fmt.Sprintf("%.0f", t.CODOut),
		fmt.Sprintf("%.1f%%", t.Abatement),
		fmt.Sprintf("%.1f", t.SludgeML),
	}
}

// Fields lists the best result as label/value lines.
func (b *Best) Fields() []Field {
	fields := []Field{
		{"Combination", b.Combination},
		{"Trial", fmt.Sprintf("%d", b.Trial)},
		{"COD abatement", fmt.Sprintf("%.2f%%", b.Abatement)},
		{"Sludge volume", fmt.Sprintf("%.2f mL", b.SludgeML)},
	}
	for _, c := range b.Costs {
		fields = append(fields, Field{
			Label: c.Reagent,
			Value: fmt.Sprintf("%.1f ppm, %s, %s/yr", c.DosePPM, formatKg(c.AnnualKg), formatMoney(c.AnnualCost)),
		})
	}
	return fields
}

// WriteText renders the report as markdown-flavoured plain text with
// pipe-delimited trial tables.
func WriteText(w io.Writer, r *Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %s\n", Title)
	writeSection(bw, "General information", r.General)
	writeSection(bw, "Test parameters", r.Protocol)
	writeSection(bw, "Raw water characteristics", r.RawWater)
	writeSection(bw, "Treatment information", r.Treatment)
	if r.Best != nil {
		writeSection(bw, "Best result", r.Best.Fields())
	}

	if len(r.Tables) > 0 {
		fmt.Fprintf(bw, "\n## Trial tables\n")
	}
	for _, t := range r.Tables {
		fmt.Fprintf(bw, "\n### %s\n", t.Combination)
		writeRow(bw, TableHeader)
		sep := make([]string, len(TableHeader))
		for i, h := range TableHeader {
			sep[i] = strings.Repeat("-", len(h))
		}
		writeRow(bw, sep)
		for _, row := range t.Rows {
			writeRow(bw, row.Cells())
		}
	}

	fmt.Fprintf(bw, "\n---\n*%s*\n", r.Footer())
	return bw.Flush()
}

func writeSection(w io.Writer, title string, fields []Field) {
	fmt.Fprintf(w, "\n## %s\n", title)
	for _, f := range fields {
		fmt.Fprintf(w, "- **%s** : %s\n", f.Label, f.Value)
	}
}

func writeRow(w io.Writer, cells []string) {
	fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
}
