package pipeline

import (
	"context"

	"github.com/kailas-cloud/ccdarank/internal/census"
	"github.com/kailas-cloud/ccdarank/internal/checkpoint"
	"github.com/kailas-cloud/ccdarank/internal/domain/document"
	"github.com/kailas-cloud/ccdarank/internal/domain/report"
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
	"github.com/kailas-cloud/ccdarank/internal/domain/weight"
	"github.com/kailas-cloud/ccdarank/internal/scoring"
)

// Lister enumerates the documents of a corpus.
type Lister interface {
	List(ctx context.Context, root string) ([]document.Handle, error)
}

// CensusRunner builds the structural report.
type CensusRunner interface {
	Run(ctx context.Context, handles []document.Handle, fingerprint string) (*report.Report, census.Summary, error)
}

// Scorer runs the checkpointed scoring pass.
type Scorer interface {
	Preflight() error
	Run(ctx context.Context, handles []document.Handle, corpusFingerprint string, table *weight.Table) (scoring.Summary, error)
}

// Artifacts persists stage outputs.
type Artifacts interface {
	SaveReport(ctx context.Context, path string, rep *report.Report) error
	LoadReport(path string) (*report.Report, error)
	SaveWeights(ctx context.Context, path string, t *weight.Table) error
	LoadWeights(path string) (*weight.Table, error)
	SaveResults(ctx context.Context, path string, rs *score.ResultSet) error
}

// CheckpointReader loads a run's checkpoints for merging.
type CheckpointReader interface {
	LoadAll(runID string) (valid []checkpoint.Checkpoint, corrupt []checkpoint.Entry, err error)
}
