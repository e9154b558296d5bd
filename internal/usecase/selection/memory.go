package selection

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
)

// MemorySource serves a result set held in memory, typically loaded from scores.json.
type MemorySource struct {
	rs *score.ResultSet
}

// NewMemorySource wraps rs. A nil result set serves domain.ErrNoResults.
func NewMemorySource(rs *score.ResultSet) *MemorySource {
	return &MemorySource{rs: rs}
}

// RunID returns the run that produced the result set.
func (m *MemorySource) RunID(_ context.Context) (string, error) {
	if m.rs == nil {
		return "", domain.ErrNoResults
	}
	return m.rs.RunID, nil
}

// Count returns the number of ranked records.
func (m *MemorySource) Count(_ context.Context) (int, error) {
	if m.rs == nil {
		return 0, domain.ErrNoResults
	}
	return m.rs.Len(), nil
}

// Page returns up to limit records from offset. limit <= 0 reads to the end.
func (m *MemorySource) Page(_ context.Context, offset, limit int) ([]score.Record, error) {
	if m.rs == nil {
		return nil, domain.ErrNoResults
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", domain.ErrInvalidRequest)
	}
	return m.rs.Page(offset, limit), nil
}

// Find returns a document's record and 1-based rank.
func (m *MemorySource) Find(_ context.Context, documentID string) (score.Record, int, error) {
	if m.rs == nil {
		return score.Record{}, 0, domain.ErrNoResults
	}
	rec, rank, ok := m.rs.Find(documentID)
	if !ok {
		return score.Record{}, 0, domain.ErrResultNotFound
	}
	return rec, rank, nil
}
