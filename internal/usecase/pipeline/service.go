// Package pipeline composes the census, derive, score and merge stages over one corpus.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ccdarank/internal/census"
	"github.com/kailas-cloud/ccdarank/internal/corpus"
	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/document"
	"github.com/kailas-cloud/ccdarank/internal/domain/report"
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
	"github.com/kailas-cloud/ccdarank/internal/domain/weight"
	"github.com/kailas-cloud/ccdarank/internal/rank"
	"github.com/kailas-cloud/ccdarank/internal/repository/artifact"
	"github.com/kailas-cloud/ccdarank/internal/scoring"
	"github.com/kailas-cloud/ccdarank/internal/weights"
)

// Paths locates the corpus and every stage artifact.
type Paths struct {
	Corpus  string
	Report  string
	Weights string
	Results string
}

// Summary reports a full pipeline run.
type Summary struct {
	RunID            string
	Documents        int
	Census           census.Summary
	ReportReused     bool
	SectionsObserved int
	SectionsWeighted int
	Scoring          scoring.Summary
	Ranked           int
	Failed           int
	Duration         time.Duration
}

// Service runs pipeline stages and persists their outputs.
type Service struct {
	lister       Lister
	census       CensusRunner
	scorer       Scorer
	artifacts    Artifacts
	checkpoints  CheckpointReader
	paths        Paths
	minFrequency float64
	policy       weights.Policy
	logger       *zap.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPolicy sets the weight derivation policy and threshold.
func WithPolicy(minFrequency float64, p weights.Policy) Option {
	return func(s *Service) {
		s.minFrequency = minFrequency
		s.policy = p
	}
}

// New creates a pipeline service.
func New(
	lister Lister, c CensusRunner, scorer Scorer, artifacts Artifacts, checkpoints CheckpointReader,
	paths Paths, opts ...Option,
) *Service {
	s := &Service{
		lister:      lister,
		census:      c,
		scorer:      scorer,
		artifacts:   artifacts,
		checkpoints: checkpoints,
		paths:       paths,
		policy:      weights.DefaultPolicy(),
		logger:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// corpusState is the enumerated corpus and its fingerprint.
type corpusState struct {
	handles     []document.Handle
	fingerprint string
}

func (s *Service) listCorpus(ctx context.Context) (corpusState, error) {
	handles, err := s.lister.List(ctx, s.paths.Corpus)
	if err != nil {
		return corpusState{}, fmt.Errorf("list corpus: %w", err)
	}
	return corpusState{handles: handles, fingerprint: corpus.Fingerprint(handles)}, nil
}

// Census runs the census pass over the corpus and writes the structural report.
func (s *Service) Census(ctx context.Context) (*report.Report, census.Summary, error) {
	cs, err := s.listCorpus(ctx)
	if err != nil {
		return nil, census.Summary{}, err
	}
	return s.runCensus(ctx, cs)
}

func (s *Service) runCensus(ctx context.Context, cs corpusState) (*report.Report, census.Summary, error) {
	rep, sum, err := s.census.Run(ctx, cs.handles, cs.fingerprint)
	if err != nil {
		return nil, sum, fmt.Errorf("census: %w", err)
	}
	if err := s.artifacts.SaveReport(ctx, s.paths.Report, rep); err != nil {
		return nil, sum, fmt.Errorf("save report: %w", err)
	}
	s.logger.Info("structural report written",
		zap.String("path", s.paths.Report),
		zap.Int("sections", len(rep.Sections)),
		zap.Int("processed", sum.Processed),
		zap.Int("failed", sum.Failed),
	)
	return rep, sum, nil
}

// Derive reads the structural report and writes the weight table.
func (s *Service) Derive(ctx context.Context) (*weight.Table, error) {
	rep, err := s.artifacts.LoadReport(s.paths.Report)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	return s.derive(ctx, rep)
}

// currentReport returns the persisted report when it describes this corpus version
// and runs the census otherwise.
func (s *Service) currentReport(ctx context.Context, cs corpusState) (*report.Report, census.Summary, bool, error) {
	rep, err := s.artifacts.LoadReport(s.paths.Report)
	switch {
	case err == nil && rep.CorpusFingerprint == cs.fingerprint && rep.Validate() == nil:
		s.logger.Info("reusing structural report",
			zap.String("path", s.paths.Report),
			zap.Int("sections", len(rep.Sections)),
		)
		return rep, census.Summary{}, true, nil
	case err != nil && !errors.Is(err, artifact.ErrNotFound):
		s.logger.Warn("structural report unreadable, rerunning census", zap.Error(err))
	}
	rep, sum, err := s.runCensus(ctx, cs)
	return rep, sum, false, err
}

// derive writes the weight table unless the persisted one is identical.
func (s *Service) derive(ctx context.Context, rep *report.Report) (*weight.Table, error) {
	table, err := weights.Derive(rep, s.minFrequency, s.policy)
	if err != nil {
		return nil, fmt.Errorf("derive weights: %w", err)
	}
	if s.sameTable(table) {
		s.logger.Info("weight table unchanged", zap.String("path", s.paths.Weights))
		return table, nil
	}
	if err := s.artifacts.SaveWeights(ctx, s.paths.Weights, table); err != nil {
		return nil, fmt.Errorf("save weights: %w", err)
	}
	s.logger.Info("weight table written",
		zap.String("path", s.paths.Weights),
		zap.Int("weighted_sections", table.Len()),
		zap.Float64("min_frequency", s.minFrequency),
	)
	return table, nil
}

// Score runs the resumable scoring pass with the persisted weight table.
// A missing or unreadable table is a *domain.FatalConfigError.
func (s *Service) Score(ctx context.Context) (scoring.Summary, error) {
	cs, err := s.listCorpus(ctx)
	if err != nil {
		return scoring.Summary{}, err
	}
	table, err := s.loadTable()
	if err != nil {
		return scoring.Summary{}, err
	}
	return s.scorer.Run(ctx, cs.handles, cs.fingerprint, table)
}

// Merge folds the checkpoints of the run matching the current corpus and weight table
// and writes the final result set.
func (s *Service) Merge(ctx context.Context) (*score.ResultSet, error) {
	cs, err := s.listCorpus(ctx)
	if err != nil {
		return nil, err
	}
	table, err := s.loadTable()
	if err != nil {
		return nil, err
	}
	return s.merge(ctx, cs, table)
}

func (s *Service) merge(ctx context.Context, cs corpusState, table *weight.Table) (*score.ResultSet, error) {
	runID, err := scoring.RunID(cs.fingerprint, table)
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	rs, err := rank.Load(s.checkpoints, runID)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", runID, err)
	}
	if rs.Len() < len(cs.handles) {
		s.logger.Warn("merging incomplete run",
			zap.String("run_id", runID),
			zap.Int("ranked", rs.Len()),
			zap.Int("documents", len(cs.handles)),
		)
	}
	if err := s.artifacts.SaveResults(ctx, s.paths.Results, rs); err != nil {
		return nil, fmt.Errorf("save results: %w", err)
	}
	s.logger.Info("final result set written",
		zap.String("path", s.paths.Results),
		zap.String("run_id", runID),
		zap.Int("ranked", rs.Len()),
		zap.Int("failed", rs.FailedCount()),
	)
	return rs, nil
}

func (s *Service) sameTable(t *weight.Table) bool {
	prev, err := s.artifacts.LoadWeights(s.paths.Weights)
	if err != nil {
		return false
	}
	a, errA := prev.Fingerprint()
	b, errB := t.Fingerprint()
	return errA == nil && errB == nil && a == b
}

func (s *Service) loadTable() (*weight.Table, error) {
	table, err := s.artifacts.LoadWeights(s.paths.Weights)
	if err != nil {
		var fatal *domain.FatalConfigError
		if errors.As(err, &fatal) {
			return nil, err
		}
		return nil, domain.NewFatalConfigError("weight table unavailable", err)
	}
	return table, nil
}

// Run executes census, derive, score and merge in order over one corpus listing.
// The checkpoint directory is checked before any document is read, and a structural
// report of the same corpus version is reused instead of running the census again.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	if err := s.scorer.Preflight(); err != nil {
		return Summary{}, err
	}
	cs, err := s.listCorpus(ctx)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Documents: len(cs.handles)}

	rep, csum, reused, err := s.currentReport(ctx, cs)
	sum.Census = csum
	sum.ReportReused = reused
	if err != nil {
		return sum, err
	}
	sum.SectionsObserved = len(rep.Sections)

	table, err := s.derive(ctx, rep)
	if err != nil {
		return sum, err
	}
	sum.SectionsWeighted = table.Len()

	ssum, err := s.scorer.Run(ctx, cs.handles, cs.fingerprint, table)
	sum.Scoring = ssum
	sum.RunID = ssum.RunID
	if err != nil {
		return sum, fmt.Errorf("score: %w", err)
	}

	rs, err := s.merge(ctx, cs, table)
	if err != nil {
		return sum, err
	}
	sum.Ranked = rs.Len()
	sum.Failed = rs.FailedCount()
	sum.Duration = time.Since(start)
	return sum, nil
}
