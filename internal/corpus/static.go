package corpus

import "context"

// StaticSource serves a fixed in-memory record set. Used for fixtures and as
// the seed corpus in local runs.
type StaticSource struct {
	records []Record
}

// NewStaticSource wraps the given records.
func NewStaticSource(records []Record) *StaticSource {
	return &StaticSource{records: records}
}

// Load returns the wrapped records.
func (s *StaticSource) Load(context.Context) ([]Record, error) {
	return s.records, nil
}
