// Package artifact persists pipeline artifacts: structural report, weight table and ranked results.
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/report"
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
	"github.com/kailas-cloud/ccdarank/internal/domain/weight"
	"github.com/kailas-cloud/ccdarank/internal/storage/atomicfile"
)

// ErrNotFound is returned when an artifact file does not exist.
var ErrNotFound = errors.New("artifact not found")

// Repo reads and writes artifacts as indented JSON through the atomic writer.
type Repo struct{}

// New creates an artifact repository.
func New() *Repo { return &Repo{} }

// SaveReport writes the structural report.
func (r *Repo) SaveReport(ctx context.Context, path string, rep *report.Report) error {
	return writeJSON(ctx, path, rep)
}

// LoadReport reads and validates a structural report.
func (r *Repo) LoadReport(path string) (*report.Report, error) {
	var rep report.Report
	if err := readJSON(path, &rep); err != nil {
		return nil, err
	}
	if rep.Version != report.Version {
		return nil, fmt.Errorf("report %s: unsupported version %d", path, rep.Version)
	}
	if err := rep.Validate(); err != nil {
		return nil, fmt.Errorf("report %s: %w", path, err)
	}
	return &rep, nil
}

// SaveWeights writes the weight table.
func (r *Repo) SaveWeights(ctx context.Context, path string, t *weight.Table) error {
	return writeJSON(ctx, path, t)
}

// LoadWeights reads a weight table. Undecodable or invalid tables are a FatalConfigError.
func (r *Repo) LoadWeights(path string) (*weight.Table, error) {
	var t weight.Table
	if err := readJSON(path, &t); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, domain.NewFatalConfigError("weight table "+path+" does not exist", err)
		}
		return nil, domain.NewFatalConfigError("corrupt weight table "+path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, domain.NewFatalConfigError("corrupt weight table "+path, err)
	}
	return &t, nil
}

// SaveResults writes the ranked result set.
func (r *Repo) SaveResults(ctx context.Context, path string, rs *score.ResultSet) error {
	return writeJSON(ctx, path, rs)
}

// LoadResults reads a ranked result set. Record order is preserved as written.
func (r *Repo) LoadResults(path string) (*score.ResultSet, error) {
	var rs score.ResultSet
	if err := readJSON(path, &rs); err != nil {
		return nil, err
	}
	if rs.Records == nil {
		rs.Records = []score.Record{}
	}
	return &rs, nil
}

func writeJSON(ctx context.Context, path string, v any) error {
	err := atomicfile.Write(ctx, path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
