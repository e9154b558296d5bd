// Package scoring applies a weight table to every document of a corpus with checkpointed, resumable batches.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ccdarank/internal/checkpoint"
	"github.com/kailas-cloud/ccdarank/internal/corpus"
	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/document"
	"github.com/kailas-cloud/ccdarank/internal/domain/score"
	"github.com/kailas-cloud/ccdarank/internal/domain/section"
	"github.com/kailas-cloud/ccdarank/internal/domain/weight"
	"github.com/kailas-cloud/ccdarank/internal/metrics"
)

// Phase is a state of one scoring run.
type Phase string

// Run phases, in order.
const (
	PhaseInit            Phase = "init"
	PhaseLoadCheckpoints Phase = "load_checkpoints"
	PhaseBatchLoop       Phase = "batch_loop"
	PhaseDone            Phase = "done"
)

const (
	// DefaultBatchSize is used when no batch size is configured.
	DefaultBatchSize = 100
	// DefaultWriteRetries is the number of attempts per checkpoint write.
	DefaultWriteRetries = 3
	// DefaultRetryBackoff is the base delay between checkpoint write attempts.
	DefaultRetryBackoff = 200 * time.Millisecond
)

// runNamespace scopes run identifiers derived from input fingerprints.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/kailas-cloud/ccdarank/run"))

// Options configures a scoring run.
type Options struct {
	BatchSize    int
	Workers      int
	WriteRetries int
	RetryBackoff time.Duration
	// Coefficients defaults to DefaultCoefficients when nil.
	Coefficients *Coefficients
}

// Summary reports what one run did.
type Summary struct {
	RunID          string
	Phase          Phase
	Documents      int
	Processed      int
	Failed         int
	Skipped        int
	Batches        int
	Discarded      int
	MemoryReleases int
	Duration       time.Duration
}

// Engine runs the INIT → LOAD_CHECKPOINTS → BATCH_LOOP → DONE state machine.
type Engine struct {
	loader     DocumentLoader
	store      CheckpointStore
	guard      MemoryGuard
	classifier *section.Classifier
	logger     *zap.Logger
	opts       Options
}

// New creates a scoring engine. Zero options take defaults; out-of-range values are a ConfigError.
func New(loader DocumentLoader, store CheckpointStore, opts Options) (*Engine, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers == 0 {
		opts.Workers = 1
	}
	if opts.WriteRetries == 0 {
		opts.WriteRetries = DefaultWriteRetries
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	coeffs := DefaultCoefficients()
	if opts.Coefficients != nil {
		coeffs = *opts.Coefficients
	}
	opts.Coefficients = &coeffs
	switch {
	case opts.BatchSize < 0:
		return nil, domain.NewConfigError("batch_size", fmt.Sprintf("must be positive, got %d", opts.BatchSize))
	case opts.Workers < 0:
		return nil, domain.NewConfigError("workers", fmt.Sprintf("must be positive, got %d", opts.Workers))
	case opts.WriteRetries < 0:
		return nil, domain.NewConfigError("write_retries", fmt.Sprintf("must be positive, got %d", opts.WriteRetries))
	case opts.RetryBackoff < 0:
		return nil, domain.NewConfigError("retry_backoff", "must not be negative")
	}
	if err := opts.Coefficients.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		loader:     loader,
		store:      store,
		classifier: section.DefaultClassifier(),
		logger:     zap.NewNop(),
		opts:       opts,
	}, nil
}

// WithLogger sets the logger.
func (e *Engine) WithLogger(l *zap.Logger) *Engine {
	if l != nil {
		e.logger = l
	}
	return e
}

// WithGuard sets the memory guard consulted before each batch.
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

// Preflight fails with *domain.FatalConfigError when the checkpoint directory cannot accept writes.
func (e *Engine) Preflight() error {
	if err := e.store.Probe(); err != nil {
		return domain.NewFatalConfigError("checkpoint directory is not writable", err)
	}
	return nil
}

// RunID derives the run identifier from the corpus and weight table fingerprints.
// Reruns over unchanged inputs share an id and therefore their checkpoints.
func RunID(corpusFingerprint string, table *weight.Table) (string, error) {
	tableFP, err := table.Fingerprint()
	if err != nil {
		return "", err
	}
	return uuid.NewSHA1(runNamespace, []byte(corpusFingerprint+"\n"+tableFP)).String(), nil
}

// run is the mutable state of one execution.
type run struct {
	id      string
	table   *weight.Table
	done    map[string]struct{}
	nextSeq int

	mu  sync.Mutex
	sum Summary
}

// Run scores every handle not already covered by a valid checkpoint of this run.
// Run-level configuration problems fail with *domain.FatalConfigError before any batch work.
// The returned summary is meaningful even when err is non-nil.
func (e *Engine) Run(
	ctx context.Context, handles []document.Handle, corpusFingerprint string, table *weight.Table,
) (Summary, error) {
	start := time.Now()

	r, err := e.initialize(handles, corpusFingerprint, table)
	if err != nil {
		return Summary{Phase: PhaseInit, Documents: len(handles)}, err
	}
	log := e.logger.With(zap.String("run_id", r.id))
	log.Info("scoring run initialized",
		zap.Int("documents", len(handles)),
		zap.Int("batch_size", e.opts.BatchSize),
		zap.Int("workers", e.opts.Workers),
		zap.Int("weighted_sections", table.Len()),
	)

	r.sum.Phase = PhaseLoadCheckpoints
	if err := e.loadCheckpoints(r, log); err != nil {
		return r.summary(start), err
	}

	r.sum.Phase = PhaseBatchLoop
	if err := e.batchLoop(ctx, r, handles, log); err != nil {
		return r.summary(start), err
	}

	r.sum.Phase = PhaseDone
	sum := r.summary(start)
	log.Info("scoring run complete",
		zap.Int("processed", sum.Processed),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
		zap.Int("batches", sum.Batches),
		zap.Int("discarded", sum.Discarded),
		zap.Duration("duration", sum.Duration),
	)
	return sum, nil
}

func (e *Engine) initialize(handles []document.Handle, corpusFingerprint string, table *weight.Table) (*run, error) {
	if table == nil {
		return nil, domain.NewFatalConfigError("weight table is required", nil)
	}
	if err := table.Validate(); err != nil {
		return nil, domain.NewFatalConfigError("corrupt weight table", err)
	}
	if table.CorpusFingerprint != corpusFingerprint {
		return nil, domain.NewFatalConfigError(fmt.Sprintf(
			"stale weight table: derived for corpus %s, current corpus is %s",
			short(table.CorpusFingerprint), short(corpusFingerprint)), nil)
	}
	if err := e.Preflight(); err != nil {
		return nil, err
	}
	id, err := RunID(corpusFingerprint, table)
	if err != nil {
		return nil, domain.NewFatalConfigError("corrupt weight table", err)
	}
	return &run{
		id:    id,
		table: table,
		done:  make(map[string]struct{}, len(handles)),
		sum:   Summary{RunID: id, Phase: PhaseInit, Documents: len(handles)},
	}, nil
}

func (e *Engine) loadCheckpoints(r *run, log *zap.Logger) error {
	valid, corrupt, err := e.store.LoadAll(r.id)
	if err != nil {
		return fmt.Errorf("load checkpoints: %w", err)
	}
	for _, c := range corrupt {
		log.Warn("discarding corrupt checkpoint", zap.String("path", c.Path), zap.Int("sequence", c.Sequence))
		metrics.CheckpointsTotal.WithLabelValues("corrupt").Inc()
		if err := e.store.Remove(c); err != nil {
			return fmt.Errorf("discard checkpoint: %w", err)
		}
		r.sum.Discarded++
		if c.Sequence > r.nextSeq {
			r.nextSeq = c.Sequence
		}
	}
	for _, cp := range valid {
		for _, rec := range cp.Records {
			r.done[rec.DocumentID] = struct{}{}
		}
		if cp.Sequence > r.nextSeq {
			r.nextSeq = cp.Sequence
		}
		metrics.CheckpointsTotal.WithLabelValues("loaded").Inc()
	}
	if len(valid) > 0 || len(corrupt) > 0 {
		log.Info("resuming from checkpoints",
			zap.Int("checkpoints", len(valid)),
			zap.Int("documents_done", len(r.done)),
			zap.Int("discarded", len(corrupt)),
		)
	}
	return nil
}

func (e *Engine) batchLoop(ctx context.Context, r *run, handles []document.Handle, log *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	var stopErr error
	for _, batch := range corpus.Batches(handles, e.opts.BatchSize) {
		pending := make([]document.Handle, 0, len(batch))
		for _, h := range batch {
			if _, ok := r.done[h.ID]; ok {
				continue
			}
			pending = append(pending, h)
		}
		skipped := len(batch) - len(pending)
		if skipped > 0 {
			r.add(func(s *Summary) { s.Skipped += skipped })
			metrics.DocumentsTotal.WithLabelValues(metrics.StageScoring, metrics.StatusResumed).Add(float64(skipped))
		}
		if len(pending) == 0 {
			continue
		}

		if err := gctx.Err(); err != nil {
			stopErr = err
			break
		}
		e.admit(r, log)

		r.nextSeq++
		seq := r.nextSeq
		g.Go(func() error {
			return e.processBatch(gctx, r, seq, pending, log)
		})
	}

	err := g.Wait()
	if err == nil && stopErr != nil {
		err = stopErr
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn("scoring run interrupted, resume will continue from the last checkpoint", zap.Error(err))
			return fmt.Errorf("scoring interrupted: %w", err)
		}
		return err
	}
	return nil
}

// admit applies memory backpressure before a batch is handed to a worker.
func (e *Engine) admit(r *run, log *zap.Logger) {
	if e.guard == nil {
		return
	}
	released, used := e.guard.Check()
	metrics.HeapBytes.Set(float64(used))
	if released {
		r.add(func(s *Summary) { s.MemoryReleases++ })
		metrics.MemoryReleasesTotal.WithLabelValues(metrics.StageScoring).Inc()
		log.Info("memory ceiling exceeded, released memory before next batch", zap.Uint64("heap_bytes", used))
	}
}

func (e *Engine) processBatch(ctx context.Context, r *run, seq int, batch []document.Handle, log *zap.Logger) error {
	start := time.Now()
	records := make([]score.Record, 0, len(batch))
	failed := 0
	for _, h := range batch {
		rec, err := e.scoreDocument(ctx, h, r.table)
		if err != nil {
			return err
		}
		if rec.Failed {
			failed++
			log.Warn("document failed, scored 0",
				zap.String("document_id", h.ID), zap.String("reason", rec.FailureReason))
		}
		records = append(records, rec)
	}

	path, err := e.writeCheckpoint(ctx, checkpoint.New(r.id, seq, records), log)
	if err != nil {
		return err
	}

	metrics.BatchDuration.WithLabelValues(metrics.StageScoring).Observe(time.Since(start).Seconds())
	metrics.DocumentsTotal.WithLabelValues(metrics.StageScoring, metrics.StatusOK).Add(float64(len(records) - failed))
	metrics.DocumentsTotal.WithLabelValues(metrics.StageScoring, metrics.StatusFailed).Add(float64(failed))
	r.add(func(s *Summary) {
		s.Processed += len(records)
		s.Failed += failed
		s.Batches++
	})
	log.Debug("checkpoint written",
		zap.Int("sequence", seq),
		zap.Int("documents", len(records)),
		zap.String("path", path),
	)
	return nil
}

// scoreDocument returns a failed record for per-document errors and an error only for cancellation.
func (e *Engine) scoreDocument(ctx context.Context, h document.Handle, table *weight.Table) (score.Record, error) {
	doc, err := e.loader.Load(ctx, h)
	if err != nil {
		if domain.IsDocumentError(err) {
			return score.NewFailed(h.ID, domain.FailureReason(err)), nil
		}
		return score.Record{}, fmt.Errorf("load %s: %w", h.ID, err)
	}
	return Score(h.ID, section.Extract(doc.Root(), e.classifier), table, *e.opts.Coefficients), nil
}

func (e *Engine) writeCheckpoint(ctx context.Context, cp checkpoint.Checkpoint, log *zap.Logger) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= e.opts.WriteRetries; attempt++ {
		path, err := e.store.Write(ctx, cp)
		if err == nil {
			metrics.CheckpointsTotal.WithLabelValues("written").Inc()
			return path, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt == e.opts.WriteRetries {
			break
		}
		metrics.CheckpointsTotal.WithLabelValues("retry").Inc()
		log.Warn("checkpoint write failed, retrying",
			zap.Int("sequence", cp.Sequence), zap.Int("attempt", attempt), zap.Error(err))

		timer := time.NewTimer(time.Duration(attempt) * e.opts.RetryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return "", fmt.Errorf("write checkpoint %d after %d attempts: %w", cp.Sequence, e.opts.WriteRetries, lastErr)
}

func (r *run) add(fn func(*Summary)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.sum)
}

func (r *run) summary(start time.Time) Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sum
	s.Duration = time.Since(start)
	return s
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
