package census

import (
	"context"

	"github.com/beevik/etree"

	"github.com/kailas-cloud/ccdarank/internal/domain/document"
)

// DocumentLoader opens one document as a parsed tree.
type DocumentLoader interface {
	Load(ctx context.Context, h document.Handle) (*etree.Document, error)
}

// MemoryGuard applies heap backpressure between batches.
type MemoryGuard interface {
	Check() (released bool, usedBytes uint64)
}
