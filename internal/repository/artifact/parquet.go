package artifact

import (
	"context"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/ccdarank/internal/domain/score"
	"github.com/kailas-cloud/ccdarank/internal/storage/atomicfile"
)

const parquetRowGroup = 10_000

// ExportParquet writes the ranked result set as a Parquet file, one row per record in rank order.
func (r *Repo) ExportParquet(ctx context.Context, path string, rs *score.ResultSet) error {
	rows := resultRows(rs)
	err := atomicfile.Write(ctx, path, func(w io.Writer) error {
		pw := parquet.NewGenericWriter[resultRow](w)
		for start := 0; start < len(rows); start += parquetRowGroup {
			end := min(start+parquetRowGroup, len(rows))
			if _, err := pw.Write(rows[start:end]); err != nil {
				return fmt.Errorf("write rows: %w", err)
			}
			if err := pw.Flush(); err != nil {
				return fmt.Errorf("flush row group: %w", err)
			}
		}
		return pw.Close()
	})
	if err != nil {
		return fmt.Errorf("export parquet %s: %w", path, err)
	}
	return nil
}
