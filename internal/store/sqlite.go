package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS measurements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    test_date TEXT NOT NULL,
    operator TEXT NOT NULL DEFAULT '',
    site TEXT NOT NULL DEFAULT '',
    water_type TEXT NOT NULL DEFAULT '',
    sample_volume_l REAL NOT NULL DEFAULT 0,
    coagulation_min INTEGER NOT NULL DEFAULT 0,
    coagulation_rpm INTEGER NOT NULL DEFAULT 0,
    flocculation_min INTEGER NOT NULL DEFAULT 0,
    flocculation_rpm INTEGER NOT NULL DEFAULT 0,
    combination TEXT NOT NULL,
    coagulant_name TEXT NOT NULL DEFAULT '',
    flocculant_name TEXT NOT NULL DEFAULT '',
    trial INTEGER NOT NULL,
    coagulant_ml REAL NOT NULL DEFAULT 0,
    flocculant_ml REAL NOT NULL DEFAULT 0,
    cod_in REAL NOT NULL DEFAULT 0,
    ph_in REAL NOT NULL DEFAULT 0,
    cod_out REAL NOT NULL DEFAULT 0,
    ph_out REAL NOT NULL DEFAULT 0,
    sludge_ml REAL NOT NULL DEFAULT 0,
    turbidity_note TEXT NOT NULL DEFAULT '',
    abatement REAL NOT NULL DEFAULT 0,
    turbidity_in REAL NOT NULL DEFAULT 0,
    turbidity_out REAL NOT NULL DEFAULT 0,
    color_in REAL NOT NULL DEFAULT 0,
    color_out REAL NOT NULL DEFAULT 0,
    suspended_in REAL NOT NULL DEFAULT 0,
    suspended_out REAL NOT NULL DEFAULT 0,
    uv254_in REAL NOT NULL DEFAULT 0,
    uv254_out REAL NOT NULL DEFAULT 0,
    residual_aluminum REAL NOT NULL DEFAULT 0,
    residual_iron REAL NOT NULL DEFAULT 0,
    conductivity_in REAL NOT NULL DEFAULT 0,
    conductivity_out REAL NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);
`

// columns lists the data columns in insert/select order, without id and
// created_at.
var columns = []string{
	"test_date", "operator", "site", "water_type", "sample_volume_l",
	"coagulation_min", "coagulation_rpm", "flocculation_min", "flocculation_rpm",
	"combination", "coagulant_name", "flocculant_name", "trial",
	"coagulant_ml", "flocculant_ml",
	"cod_in", "ph_in", "cod_out", "ph_out", "sludge_ml", "turbidity_note", "abatement",
	"turbidity_in", "turbidity_out", "color_in", "color_out",
	"suspended_in", "suspended_out", "uv254_in", "uv254_out",
	"residual_aluminum", "residual_iron", "conductivity_in", "conductivity_out",
}

// fields returns pointers to m's data fields in columns order.
func fields(m *Measurement) []any {
	return []any{
		&m.TestDate, &m.Operator, &m.Site, &m.WaterType, &m.SampleVolumeL,
		&m.CoagulationMin, &m.CoagulationRPM, &m.FlocculationMin, &m.FlocculationRPM,
		&m.Combination, &m.CoagulantName, &m.FlocculantName, &m.Trial,
		&m.CoagulantML, &m.FlocculantML,
		&m.CODIn, &m.PHIn, &m.CODOut, &m.PHOut, &m.SludgeML, &m.TurbidityNote, &m.Abatement,
		&m.TurbidityIn, &m.TurbidityOut, &m.ColorIn, &m.ColorOut,
		&m.SuspendedIn, &m.SuspendedOut, &m.UV254In, &m.UV254Out,
		&m.ResidualAluminum, &m.ResidualIron, &m.ConductivityIn, &m.ConductivityOut,
	}
}

// values dereferences fields for use as insert arguments.
func values(m *Measurement) []any {
	ptrs := fields(m)
	vals := make([]any, len(ptrs))
	for i, p := range ptrs {
		switch v := p.(type) {
		case *string:
			vals[i] = *v
		case *int:
			vals[i] = *v
		case *float64:
			vals[i] = *v
		}
	}
	return vals
}

// ExportColumns names the columns of a full table dump.
func ExportColumns() []string {
	out := append([]string{"id"}, columns...)
	return append(out, "created_at")
}

// Row returns m's values in ExportColumns order, created_at as RFC 3339.
func (m *Measurement) Row() []any {
	out := append([]any{m.ID}, values(m)...)
	return append(out, m.CreatedAt.Format(time.RFC3339))
}

// Record returns m as an object keyed by ExportColumns, for JSON output.
func (m *Measurement) Record() map[string]any {
	cols := ExportColumns()
	out := make(map[string]any, len(cols))
	for i, v := range m.Row() {
		out[cols[i]] = v
	}
	return out
}

var (
	insertSQL = fmt.Sprintf(`INSERT INTO measurements (%s, created_at) VALUES (%s?)`,
		strings.Join(columns, ", "), strings.Repeat("?, ", len(columns)))
	selectSQL = fmt.Sprintf(`SELECT id, %s, created_at FROM measurements`, strings.Join(columns, ", "))
)

// Open opens (creating if needed) the database file and applies the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Let concurrent writers wait on the file lock instead of failing at once
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path is the database file the store was opened on.
func (s *SQLiteStore) Path() string {
	return s.path
}

// AppendMeasurement inserts one row and fills in m.ID and m.CreatedAt.
func (s *SQLiteStore) AppendMeasurement(ctx context.Context, m *Measurement) error {
	return insert(ctx, s.db, m, time.Now())
}

// AppendMeasurements inserts a batch of rows (typically one trial grid) in a
// single transaction.
func (s *SQLiteStore) AppendMeasurements(ctx context.Context, ms []*Measurement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, m := range ms {
		if err := insert(ctx, tx, m, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit measurements: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, db execer, m *Measurement, now time.Time) error {
	created := now.Unix()
	args := append(values(m), created)

	result, err := db.ExecContext(ctx, insertSQL, args...)
	if err != nil {
		return fmt.Errorf("failed to insert measurement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	m.ID = id
	m.CreatedAt = time.Unix(created, 0)
	return nil
}

// ListMeasurements returns every row, most recently inserted first.
func (s *SQLiteStore) ListMeasurements(ctx context.Context) ([]*Measurement, error) {
	rows, err := s.db.QueryContext(ctx, selectSQL+` ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list measurements: %w", err)
	}
	defer rows.Close()

	var out []*Measurement
	for rows.Next() {
		var m Measurement
		var createdAt int64
		dest := append([]any{&m.ID}, fields(&m)...)
		dest = append(dest, &createdAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read measurements: %w", err)
	}

	return out, nil
}

// GetMeasurement returns a single row by id.
func (s *SQLiteStore) GetMeasurement(ctx context.Context, id int64) (*Measurement, error) {
	var m Measurement
	var createdAt int64
	dest := append([]any{&m.ID}, fields(&m)...)
	dest = append(dest, &createdAt)

	err := s.db.QueryRowContext(ctx, selectSQL+` WHERE id = ?`, id).Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get measurement: %w", err)
	}

	m.CreatedAt = time.Unix(createdAt, 0)
	return &m, nil
}

func (s *SQLiteStore) CountMeasurements(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM measurements`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count measurements: %w", err)
	}
	return n, nil
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}
