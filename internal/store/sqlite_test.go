package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jarlab/jarlab/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func sample(trial int) *store.Measurement {
	return &store.Measurement{
		TestDate:         "2024-03-18",
		Operator:         "J. Martin",
		Site:             "Intake 2",
		WaterType:        "Surface water",
		SampleVolumeL:    1.0,
		CoagulationMin:   2,
		CoagulationRPM:   200,
		FlocculationMin:  20,
		FlocculationRPM:  30,
		Combination:      "Ferric chloride (FeCl3) + PolyDADMAC",
		CoagulantName:    "Ferric chloride (FeCl3)",
		FlocculantName:   "PolyDADMAC",
		Trial:            trial,
		CoagulantML:      86.2069 * float64(trial),
		FlocculantML:     2.272727,
		CODIn:            150,
		PHIn:             7.2,
		CODOut:           50 + float64(trial),
		PHOut:            6.8,
		SludgeML:         12.5,
		TurbidityNote:    "clear",
		Abatement:        66.666667,
		TurbidityIn:      15,
		TurbidityOut:     1.2,
		ColorIn:          25,
		ColorOut:         5,
		SuspendedIn:      50,
		SuspendedOut:     4,
		UV254In:          0.1,
		UV254Out:         0.035,
		ResidualAluminum: 0.02,
		ResidualIron:     0.15,
		ConductivityIn:   500,
		ConductivityOut:  520,
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jar.db")

	s1, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.AppendMeasurement(context.Background(), sample(1)))
	require.NoError(t, s1.Close())

	s2, err := store.Open(path)
	require.NoError(t, err)
	defer s2.Close()

	n, err := s2.CountMeasurements(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, path, s2.Path())
}

func TestAppendAndList_RoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	const n = 5
	var written []*store.Measurement
	for i := 1; i <= n; i++ {
		m := sample(i)
		require.NoError(t, s.AppendMeasurement(ctx, m))
		assert.NotZero(t, m.ID)
		written = append(written, m)
	}

	got, err := s.ListMeasurements(ctx)
	require.NoError(t, err)
	require.Len(t, got, n)

	// newest first
	for i, m := range got {
		want := written[n-1-i]
		if diff := cmp.Diff(want, m, cmpopts.EquateApproxTime(0)); diff != "" {
			t.Errorf("row %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestListMeasurements_InsertionOrderIgnoresClock(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.AppendMeasurement(ctx, sample(i)))
	}
	// the clock stepped back after the first insert
	_, err := s.DB().Exec(`UPDATE measurements SET created_at = created_at + 3600 WHERE id = 1`)
	require.NoError(t, err)

	got, err := s.ListMeasurements(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestAppendMeasurements_Batch(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	batch := []*store.Measurement{sample(1), sample(2), sample(3)}
	require.NoError(t, s.AppendMeasurements(ctx, batch))

	got, err := s.ListMeasurements(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{got[0].Trial, got[1].Trial, got[2].Trial})
}

func TestAppend_DuplicatesAccumulate(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMeasurement(ctx, sample(1)))
	require.NoError(t, s.AppendMeasurement(ctx, sample(1)))

	n, err := s.CountMeasurements(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestGetMeasurement(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	m := sample(2)
	require.NoError(t, s.AppendMeasurement(ctx, m))

	got, err := s.GetMeasurement(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Combination, got.Combination)

	_, err = s.GetMeasurement(ctx, m.ID+100)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListMeasurements_Empty(t *testing.T) {
	s := setupTestDB(t)

	got, err := s.ListMeasurements(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilter(t *testing.T) {
	var records []*store.Measurement
	for i := 0; i < 6; i++ {
		m := sample(i + 1)
		m.Site = fmt.Sprintf("site-%d", i%2)
		if i >= 4 {
			m.TestDate = "2024-03-19"
		}
		records = append(records, m)
	}

	assert.Len(t, store.Filter{}.Apply(records), 6)
	assert.Len(t, store.Filter{Site: "site-0"}.Apply(records), 3)
	assert.Len(t, store.Filter{Site: "site-0", TestDate: "2024-03-19"}.Apply(records), 1)
	assert.Empty(t, store.Filter{Combination: "nothing"}.Apply(records))

	assert.Equal(t, []string{"site-0", "site-1"}, store.Distinct(records, store.BySite))
	assert.Equal(t, []string{"2024-03-18", "2024-03-19"}, store.Distinct(records, store.ByDate))
}

func TestExportRow(t *testing.T) {
	m := sample(2)
	m.ID = 7
	m.CreatedAt = time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC)

	cols := store.ExportColumns()
	row := m.Row()
	require.Len(t, row, len(cols))
	assert.Equal(t, "id", cols[0])
	assert.Equal(t, "created_at", cols[len(cols)-1])
	assert.Equal(t, int64(7), row[0])
	assert.Equal(t, "2024-03-18T09:00:00Z", row[len(row)-1])

	rec := m.Record()
	assert.Equal(t, "Intake 2", rec["site"])
	assert.Equal(t, 2, rec["trial"])
	assert.Equal(t, "clear", rec["turbidity_note"])
	assert.Equal(t, 0.15, rec["residual_iron"])
}
