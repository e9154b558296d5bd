package selection

import (
	"context"

	"github.com/kailas-cloud/ccdarank/internal/domain/score"
)

// Source serves a ranked result set: a loaded scores file or the Redis ranking.
type Source interface {
	RunID(ctx context.Context) (string, error)
	Count(ctx context.Context) (int, error)
	Page(ctx context.Context, offset, limit int) ([]score.Record, error)
	Find(ctx context.Context, documentID string) (score.Record, int, error)
}
