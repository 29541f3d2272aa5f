package store

import "context"

// Store defines the interface for measurement storage operations
type Store interface {
	AppendMeasurement(ctx context.Context, m *Measurement) error
	AppendMeasurements(ctx context.Context, ms []*Measurement) error
	ListMeasurements(ctx context.Context) ([]*Measurement, error)
	GetMeasurement(ctx context.Context, id int64) (*Measurement, error)
	CountMeasurements(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
