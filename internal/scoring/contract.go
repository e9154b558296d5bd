package scoring

import (
	"context"

	"github.com/beevik/etree"

	"github.com/kailas-cloud/ccdarank/internal/checkpoint"
	"github.com/kailas-cloud/ccdarank/internal/domain/document"
)

// DocumentLoader opens one document as a parsed tree.
type DocumentLoader interface {
	Load(ctx context.Context, h document.Handle) (*etree.Document, error)
}

// CheckpointStore persists completed batches.
type CheckpointStore interface {
	Probe() error
	Write(ctx context.Context, cp checkpoint.Checkpoint) (string, error)
	LoadAll(runID string) (valid []checkpoint.Checkpoint, corrupt []checkpoint.Entry, err error)
	Remove(e checkpoint.Entry) error
}

// MemoryGuard applies heap backpressure before each batch is admitted.
type MemoryGuard interface {
	Check() (released bool, usedBytes uint64)
}
