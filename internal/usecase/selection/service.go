// Package selection serves top-N and paged views over the final ranked score table.
package selection

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
)

const (
	// DefaultLimit is the page size when the caller gives none.
	DefaultLimit = 20
	// DefaultMaxLimit caps a single page.
	DefaultMaxLimit = 1000
)

// Ranked is a score record with its 1-based rank.
type Ranked struct {
	Rank int
	score.Record
}

// Page is one window of the ranking.
type Page struct {
	RunID   string
	Total   int
	Offset  int
	Limit   int
	Records []Ranked
}

// Service reads rankings from a Source.
type Service struct {
	src      Source
	maxLimit int
}

// Option configures the Service.
type Option func(*Service)

// WithMaxLimit caps the page size.
func WithMaxLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// New creates a selection service.
func New(src Source, opts ...Option) *Service {
	s := &Service{src: src, maxLimit: DefaultMaxLimit}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MaxLimit returns the configured page cap.
func (s *Service) MaxLimit() int { return s.maxLimit }

// List returns the page at offset. limit 0 means DefaultLimit.
func (s *Service) List(ctx context.Context, offset, limit int) (Page, error) {
	if offset < 0 {
		return Page{}, fmt.Errorf("%w: offset must be >= 0", domain.ErrInvalidRequest)
	}
	switch {
	case limit == 0:
		limit = min(DefaultLimit, s.maxLimit)
	case limit < 0 || limit > s.maxLimit:
		return Page{}, fmt.Errorf("%w: limit must be in [1, %d]", domain.ErrInvalidRequest, s.maxLimit)
	}

	run, err := s.src.RunID(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("run id: %w", err)
	}
	total, err := s.src.Count(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("count: %w", err)
	}
	recs, err := s.src.Page(ctx, offset, limit)
	if err != nil {
		return Page{}, fmt.Errorf("page: %w", err)
	}

	out := make([]Ranked, len(recs))
	for i, r := range recs {
		out[i] = Ranked{Rank: offset + i + 1, Record: r}
	}
	return Page{RunID: run, Total: total, Offset: offset, Limit: limit, Records: out}, nil
}

// Top returns the n best-ranked documents.
func (s *Service) Top(ctx context.Context, n int) ([]Ranked, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive", domain.ErrInvalidRequest)
	}
	p, err := s.List(ctx, 0, min(n, s.maxLimit))
	if err != nil {
		return nil, err
	}
	return p.Records, nil
}

// Get returns one document's ranked record.
func (s *Service) Get(ctx context.Context, documentID string) (Ranked, error) {
	if documentID == "" {
		return Ranked{}, fmt.Errorf("%w: document id is required", domain.ErrInvalidRequest)
	}
	rec, rank, err := s.src.Find(ctx, documentID)
	if err != nil {
		return Ranked{}, fmt.Errorf("find %s: %w", documentID, err)
	}
	return Ranked{Rank: rank, Record: rec}, nil
}
