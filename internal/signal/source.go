package signal

import (
	"context"
	"sort"
	"time"

	"alphasim/internal/domain"
)

// Source produces raw signal rows for a date range. Implementations wrap
// whatever computes or stores the underlying signal values; the engine
// only depends on this normalized shape.
type Source interface {
	// Name returns the unique identifier for this signal source.
	Name() string

	// Fetch returns all raw rows for dates within [start, end].
	Fetch(ctx context.Context, start, end time.Time) ([]domain.RawSignal, error)
}

// Registry holds a named collection of signal sources for lookup and
// enumeration.
type Registry struct {
	sources map[string]Source
}

// NewRegistry creates an empty source Registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]Source),
	}
}

// Register adds a source to the registry, keyed by its Name().
func (r *Registry) Register(s Source) {
	r.sources[s.Name()] = s
}

// Get retrieves a source by name. The second return value indicates whether
// the source was found.
func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// List returns a sorted slice of all registered source names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValueReader reads persisted signal rows for one named signal. It is
// implemented by store.SQLiteStore.
type ValueReader interface {
	ReadSignalValues(ctx context.Context, name string, start, end time.Time) ([]domain.RawSignal, error)
}

// Compile-time interface check.
var _ Source = (*StoreSource)(nil)

// StoreSource is a Source backed by persisted signal history. It serves
// whatever rows a computation pipeline has previously written for the
// named signal.
type StoreSource struct {
	name   string
	reader ValueReader
}

// NewStoreSource creates a StoreSource for the named signal backed by the
// given reader.
func NewStoreSource(name string, reader ValueReader) *StoreSource {
	return &StoreSource{name: name, reader: reader}
}

// Name returns the signal name this source serves.
func (s *StoreSource) Name() string { return s.name }

// Fetch reads all persisted rows for the signal within [start, end].
func (s *StoreSource) Fetch(ctx context.Context, start, end time.Time) ([]domain.RawSignal, error) {
	return s.reader.ReadSignalValues(ctx, s.name, start, end)
}
