package capture

import (
	"context"
	"errors"
	"sync"

	"github.com/justapithecus/lode/lode"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "smithyrt"

// ErrEmptyRecords is returned when Write is called with no records.
var ErrEmptyRecords = errors.New("no attempt records to write")

// Store writes attempt records to a Lode dataset. Safe for concurrent use;
// each Write produces one snapshot.
type Store struct {
	mu      sync.Mutex
	dataset lode.Dataset
	backend string
}

// NewDataset opens the attempt dataset on factory with the layout and codec
// used by both the write and read paths.
func NewDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	ds, err := lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, wrap("init", dataset, err)
	}
	return ds, nil
}

// NewStore creates a Store on a custom factory. backend names the storage
// for metrics and logs.
func NewStore(dataset, backend string, factory lode.StoreFactory) (*Store, error) {
	ds, err := NewDataset(dataset, factory)
	if err != nil {
		return nil, err
	}
	return &Store{dataset: ds, backend: backend}, nil
}

// NewFSStore creates a Store rooted at a local directory.
func NewFSStore(dataset, root string) (*Store, error) {
	return NewStore(dataset, "fs", lode.NewFSFactory(root))
}

// NewMemoryStore creates an in-memory Store.
func NewMemoryStore(dataset string) (*Store, error) {
	return NewStore(dataset, "memory", lode.NewMemoryFactory())
}

// Dataset returns the underlying dataset for queries.
func (s *Store) Dataset() lode.Dataset {
	return s.dataset
}

// Backend returns the storage backend name.
func (s *Store) Backend() string {
	return s.backend
}

// Write persists records as a single snapshot.
func (s *Store) Write(ctx context.Context, records []AttemptRecord) error {
	if len(records) == 0 {
		return ErrEmptyRecords
	}

	rows := make([]any, 0, len(records))
	for _, r := range records {
		if r.Day == "" {
			r.Day = DeriveDay(r.Timestamp)
		}
		rows = append(rows, r.toMap())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.dataset.Write(ctx, rows, lode.Metadata{}); err != nil {
		return wrap("write", string(s.dataset.ID()), err)
	}
	return nil
}
