// Package census inventories document sections across a corpus and builds the structural report.
package census

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ccdarank/internal/corpus"
	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/document"
	"github.com/kailas-cloud/ccdarank/internal/domain/report"
	"github.com/kailas-cloud/ccdarank/internal/domain/section"
	"github.com/kailas-cloud/ccdarank/internal/metrics"
)

const (
	// DefaultBatchSize is used when no batch size is configured.
	DefaultBatchSize = 100
	// DefaultMaxExamples bounds example document ids kept per section.
	DefaultMaxExamples = 5
	// DefaultMaxTitles bounds distinct titles kept per section.
	DefaultMaxTitles = 10
)

// Summary describes one census pass.
type Summary struct {
	Documents      int
	Processed      int
	Failed         int
	Batches        int
	MemoryReleases int
	Duration       time.Duration
}

// Engine walks a corpus in fixed-size batches and accumulates section statistics.
type Engine struct {
	loader      DocumentLoader
	classifier  *section.Classifier
	guard       MemoryGuard
	logger      *zap.Logger
	batchSize   int
	maxExamples int
	maxTitles   int
}

// New creates a census engine. Batch size must be positive.
func New(loader DocumentLoader, batchSize int) (*Engine, error) {
	if batchSize <= 0 {
		return nil, domain.NewConfigError("batch_size", fmt.Sprintf("must be positive, got %d", batchSize))
	}
	return &Engine{
		loader:      loader,
		classifier:  section.DefaultClassifier(),
		logger:      zap.NewNop(),
		batchSize:   batchSize,
		maxExamples: DefaultMaxExamples,
		maxTitles:   DefaultMaxTitles,
	}, nil
}

// WithLogger sets the logger.
func (e *Engine) WithLogger(l *zap.Logger) *Engine {
	if l != nil {
		e.logger = l
	}
	return e
}

// WithGuard sets the memory guard consulted after every batch.
func (e *Engine) WithGuard(g MemoryGuard) *Engine {
	e.guard = g
	return e
}

// WithClassifier replaces the section kind classifier.
func (e *Engine) WithClassifier(c *section.Classifier) *Engine {
	if c != nil {
		e.classifier = c
	}
	return e
}

// WithRetention configures how many example documents and titles are kept per section.
func (e *Engine) WithRetention(maxExamples, maxTitles int) *Engine {
	if maxExamples >= 0 {
		e.maxExamples = maxExamples
	}
	if maxTitles >= 0 {
		e.maxTitles = maxTitles
	}
	return e
}

// Run processes every handle and returns the final structural report.
// Per-document load failures are counted and skipped; cancellation aborts the pass.
func (e *Engine) Run(ctx context.Context, handles []document.Handle, fingerprint string) (*report.Report, Summary, error) {
	start := time.Now()
	acc := newAccumulator(e.maxExamples, e.maxTitles)
	sum := Summary{Documents: len(handles)}

	for i, batch := range corpus.Batches(handles, e.batchSize) {
		if err := ctx.Err(); err != nil {
			return nil, sum, fmt.Errorf("census cancelled after %d batches: %w", sum.Batches, err)
		}
		batchStart := time.Now()

		partial, err := e.processBatch(ctx, batch)
		if err != nil {
			return nil, sum, err
		}
		acc.merge(partial)
		sum.Processed += partial.processed
		sum.Failed += partial.failed
		sum.Batches++

		metrics.BatchDuration.WithLabelValues(metrics.StageCensus).Observe(time.Since(batchStart).Seconds())
		e.logger.Debug("census batch merged",
			zap.Int("batch", i+1),
			zap.Int("documents", len(batch)),
			zap.Int("processed_total", acc.processed),
			zap.Int("sections", len(acc.stats)),
		)

		if e.guard != nil {
			released, used := e.guard.Check()
			metrics.HeapBytes.Set(float64(used))
			if released {
				sum.MemoryReleases++
				metrics.MemoryReleasesTotal.WithLabelValues(metrics.StageCensus).Inc()
				e.logger.Info("memory ceiling exceeded, released batch state",
					zap.Int("batch", i+1), zap.Uint64("heap_bytes", used))
			}
		}
	}

	rep := acc.report(fingerprint)
	sum.Duration = time.Since(start)
	e.logger.Info("census complete",
		zap.Int("documents", sum.Documents),
		zap.Int("processed", sum.Processed),
		zap.Int("failed", sum.Failed),
		zap.Int("sections", len(rep.Sections)),
		zap.Duration("duration", sum.Duration),
	)
	return rep, sum, nil
}

// batchResult is the per-batch intermediate state, dropped after merge.
type batchResult struct {
	processed int
	failed    int
	docs      []docSections
}

type docSections struct {
	id      string
	records []section.Record
}

func (e *Engine) processBatch(ctx context.Context, batch []document.Handle) (batchResult, error) {
	var res batchResult
	for _, h := range batch {
		doc, err := e.loader.Load(ctx, h)
		if err != nil {
			if !domain.IsDocumentError(err) {
				return res, fmt.Errorf("load %s: %w", h.ID, err)
			}
			res.failed++
			metrics.DocumentsTotal.WithLabelValues(metrics.StageCensus, metrics.StatusFailed).Inc()
			e.logger.Warn("document skipped",
				zap.String("document_id", h.ID),
				zap.String("reason", domain.FailureReason(err)),
				zap.Error(err),
			)
			continue
		}
		res.processed++
		res.docs = append(res.docs, docSections{id: h.ID, records: section.Extract(doc.Root(), e.classifier)})
		metrics.DocumentsTotal.WithLabelValues(metrics.StageCensus, metrics.StatusOK).Inc()
	}
	return res, nil
}

type accumulator struct {
	maxExamples int
	maxTitles   int
	processed   int
	failed      int
	stats       map[string]*report.Stat
}

func newAccumulator(maxExamples, maxTitles int) *accumulator {
	return &accumulator{maxExamples: maxExamples, maxTitles: maxTitles, stats: make(map[string]*report.Stat)}
}

// merge folds a batch into the running totals and recomputes every frequency from exact counts.
func (a *accumulator) merge(b batchResult) {
	a.processed += b.processed
	a.failed += b.failed
	for _, d := range b.docs {
		for _, r := range d.records {
			st, ok := a.stats[r.ID]
			if !ok {
				st = &report.Stat{SectionID: r.ID, TemplateID: r.TemplateID, Kind: r.Kind}
				a.stats[r.ID] = st
			}
			st.DocumentsSeen++
			st.TotalOccurrences += r.Occurrences
			st.TotalEntries += r.Entries
			st.TotalCodedElements += r.CodedElements
			st.TotalNarrativeWords += r.NarrativeWords
			if len(st.ExampleDocuments) < a.maxExamples {
				st.ExampleDocuments = append(st.ExampleDocuments, d.id)
			}
			if r.Title != "" && len(st.Titles) < a.maxTitles && !contains(st.Titles, r.Title) {
				st.Titles = append(st.Titles, r.Title)
			}
		}
	}
	for _, st := range a.stats {
		st.Frequency = frequency(st.DocumentsSeen, a.processed)
	}
}

func (a *accumulator) report(fingerprint string) *report.Report {
	rep := &report.Report{
		Version:            report.Version,
		CorpusFingerprint:  fingerprint,
		DocumentsProcessed: a.processed,
		DocumentsFailed:    a.failed,
		Sections:           make([]report.Stat, 0, len(a.stats)),
	}
	for _, st := range a.stats {
		rep.Sections = append(rep.Sections, *st)
	}
	sort.Slice(rep.Sections, func(i, j int) bool {
		si, sj := rep.Sections[i], rep.Sections[j]
		if si.DocumentsSeen != sj.DocumentsSeen {
			return si.DocumentsSeen > sj.DocumentsSeen
		}
		return si.SectionID < sj.SectionID
	})
	return rep
}

func frequency(seen, processed int) float64 {
	if processed == 0 {
		return 0
	}
	return float64(seen) / float64(processed)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
