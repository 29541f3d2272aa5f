package report_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/jarlab/jarlab/internal/parameter"
	"github.com/jarlab/jarlab/internal/reagent"
	"github.com/jarlab/jarlab/internal/report"
	"github.com/jarlab/jarlab/internal/session"
	"github.com/jarlab/jarlab/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	ferric = "Ferric chloride (FeCl3)"
	dadmac = "PolyDADMAC"
)

var generated = time.Date(2024, 3, 18, 16, 45, 0, 0, time.UTC)

func lists() reagent.Lists {
	return reagent.Lists{Coagulants: reagent.DefaultCoagulants(), Flocculants: reagent.DefaultFlocculants()}
}

// fixture returns a session with one filled grid and the records saving it
// would produce, in store order (newest first).
func fixture(t *testing.T) (*session.Session, []*store.Measurement) {
	t.Helper()

	s := session.New("r", generated, session.DefaultDefaults())
	s.Info.Operator = "J. Martin"
	s.Info.Site = "Intake 2"
	key := session.NewKey(ferric, dadmac)
	c, err := s.AddCombination(key, lists())
	require.NoError(t, err)

	for i, out := range []float64{140, 60, 45, 45} {
		row := c.Trials[i]
		row.CODOut = out
		row.SludgeML = float64(5 * (i + 1))
		require.NoError(t, s.UpdateTrial(key, i, row))
	}

	ms, err := s.Measurements(key)
	require.NoError(t, err)
	for i, m := range ms {
		m.ID = int64(i + 1)
		m.CreatedAt = generated
	}

	// store order: newest first
	records := make([]*store.Measurement, len(ms))
	for i, m := range ms {
		records[len(ms)-1-i] = m
	}
	return s, records
}

func TestBuild(t *testing.T) {
	s, records := fixture(t)

	other := *records[0]
	other.Site = "Elsewhere"
	other.Abatement = 99
	all := append([]*store.Measurement{&other}, records...)

	r := report.Build(s, all, parameter.Default(), lists(), generated)

	assert.Equal(t, "2024-03-18", r.TestDate)
	assert.Equal(t, report.Field{Label: "Operator", Value: "J. Martin"}, r.General[1])
	assert.Equal(t, "2 min at 200 rpm", r.Protocol[1].Value)

	require.Len(t, r.RawWater, 3)
	assert.Equal(t, "Turbidity (NTU)", r.RawWater[0].Label)
	assert.Equal(t, "150.00", r.RawWater[2].Value)

	assert.Equal(t, "79,200.00 m³/yr", r.Treatment[4].Value)

	require.Len(t, r.Tables, 1)
	tbl := r.Tables[0]
	assert.Equal(t, "Ferric chloride (FeCl3) + PolyDADMAC", tbl.Combination)
	require.Len(t, tbl.Rows, 4)
	assert.Equal(t, 50.0, tbl.Rows[1].CoagPPM)
	assert.InDelta(t, 20.0, tbl.Rows[1].CoagActive, 1e-9)
	assert.InDelta(t, 0.4, tbl.Rows[1].FlocActive, 1e-9)

	// the record from another site is not part of this test
	require.NotNil(t, r.Best)
	assert.Equal(t, 70.0, r.Best.Abatement)
	assert.Equal(t, 4, r.Best.Trial, "first of the tied rows in store order")
	require.Len(t, r.Best.Costs, 2)
	assert.Equal(t, ferric, r.Best.Costs[0].Reagent)
	assert.InDelta(t, 150.0, r.Best.Costs[0].DosePPM, 1e-6)
	assert.InDelta(t, 11880.0, r.Best.Costs[0].AnnualKg, 1e-3)
	assert.InDelta(t, 10098.0, r.Best.Costs[0].AnnualCost, 1e-3)
}

func TestBuild_NoRecords(t *testing.T) {
	s, _ := fixture(t)

	r := report.Build(s, nil, parameter.Default(), lists(), generated)

	assert.Nil(t, r.Best)
	assert.Len(t, r.Tables, 1)
}

func TestFromRecords(t *testing.T) {
	s, records := fixture(t)

	r, err := report.FromRecords(records, parameter.Default(), lists(), s.Treatment, generated)
	require.NoError(t, err)

	require.Len(t, r.Tables, 1)
	rows := r.Tables[0].Rows
	require.Len(t, rows, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{rows[0].Trial, rows[1].Trial, rows[2].Trial, rows[3].Trial})
	assert.InDelta(t, 100.0, rows[2].CoagPPM, 1e-6, "ppm recovered from the saved volume")
	assert.InDelta(t, 1.0, rows[2].FlocPPM, 1e-6)
	assert.Equal(t, "J. Martin", r.General[1].Value)
	assert.Equal(t, 4, r.Best.Trial)

	_, err = report.FromRecords(nil, parameter.Default(), lists(), s.Treatment, generated)
	assert.Error(t, err)
}

func TestWriteText(t *testing.T) {
	s, records := fixture(t)
	r := report.Build(s, records, parameter.Default(), lists(), generated)

	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf, r))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# "+report.Title))
	assert.Contains(t, out, "- **Sampling site** : Intake 2")
	assert.Contains(t, out, "### Ferric chloride (FeCl3) + PolyDADMAC")
	assert.Contains(t, out, "| Trial | Coag (ppm) | Coag (active) |")
	assert.Contains(t, out, "| 2 | 50.0 | 20.0 | 1.0 | 0.4 | 150 | 60 | 60.0% | 10.0 |")
	assert.Contains(t, out, "Report generated automatically on 18/03/2024 at 16:45")
}

func TestWriteHTML(t *testing.T) {
	s, records := fixture(t)
	s.Info.Site = "<Intake & 2>"
	for _, m := range records {
		m.Site = s.Info.Site
	}
	r := report.Build(s, records, parameter.Default(), lists(), generated)

	var buf bytes.Buffer
	require.NoError(t, report.WriteHTML(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "<h1>"+report.Title+"</h1>")
	assert.Contains(t, out, "&lt;Intake &amp; 2&gt;")
	assert.Contains(t, out, "<h2>Best result</h2>")
	assert.Contains(t, out, "<th>Abatt%</th>")
	assert.Contains(t, out, "<td>60.0%</td>")
}

func TestWritePDF(t *testing.T) {
	s, records := fixture(t)
	r := report.Build(s, records, parameter.Default(), lists(), generated)

	var buf bytes.Buffer
	require.NoError(t, report.WritePDF(&buf, r))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}

func TestWriteCSV(t *testing.T) {
	_, records := fixture(t)

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(records)+1)
	assert.Equal(t, store.ExportColumns(), rows[0])
	assert.Equal(t, "4", rows[1][0])
	assert.Equal(t, "J. Martin", rows[1][2])
}

func TestWriteXLSX(t *testing.T) {
	_, records := fixture(t)

	var buf bytes.Buffer
	require.NoError(t, report.WriteXLSX(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Measurements", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Measurements")
	require.NoError(t, err)
	require.Len(t, rows, len(records)+1)
	assert.Equal(t, "test_date", rows[0][1])

	v, err := f.GetCellValue("Summary", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Ferric chloride (FeCl3) + PolyDADMAC", v)
}

func TestFileNames(t *testing.T) {
	r := &report.Report{TestDate: "2024-03-18"}
	assert.Equal(t, "jar_test_report_2024-03-18.pdf", r.FileName("pdf"))
	assert.Equal(t, "jar_test_database_20240318.csv", report.ExportFileName(generated, "csv"))
}
