package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ccdarank/internal/storage/atomicfile"
	"github.com/kailas-cloud/ccdarank/internal/usecase/pipeline"
)

// stageOptions are per-command overrides for the batch stages.
type stageOptions struct {
	batchSize    int
	workers      int
	minFrequency float64
}

func (s *stageOptions) bindBatch(cmd *cobra.Command) {
	cmd.Flags().IntVar(&s.batchSize, "batch-size", 0, "Documents per batch (0 keeps config)")
}

func (s *stageOptions) bindWorkers(cmd *cobra.Command) {
	cmd.Flags().IntVar(&s.workers, "workers", 0, "Scoring batches processed concurrently, each with its own checkpoint (0 keeps config)")
}

func (s *stageOptions) bindMinFrequency(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&s.minFrequency, "min-frequency", 0,
		"Minimum corpus frequency in [0,1] for a section to be weighted (default from config)")
}

// apply copies set flags into the loaded config and revalidates it.
func (s *stageOptions) apply(cmd *cobra.Command, a *app) error {
	flags := cmd.Flags()
	if flags.Changed("batch-size") {
		a.cfg.Census.BatchSize = s.batchSize
		a.cfg.Scoring.BatchSize = s.batchSize
	}
	if flags.Changed("workers") {
		a.cfg.Scoring.Workers = s.workers
	}
	if flags.Changed("min-frequency") {
		a.cfg.Weights.MinFrequency = s.minFrequency
	}
	return a.cfg.Validate()
}

func newStageApp(cmd *cobra.Command, o *rootOptions, s *stageOptions) (*app, error) {
	a, err := newApp(cmd, o)
	if err != nil {
		return nil, err
	}
	if err := s.apply(cmd, a); err != nil {
		return nil, err
	}
	return a, nil
}

func newCensusCmd(o *rootOptions) *cobra.Command {
	s := &stageOptions{}
	cmd := &cobra.Command{
		Use:   "census",
		Short: "Measure section occurrence across the corpus and write section_report.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newStageApp(cmd, o, s)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()
			ctx := a.context(cmd.Context(), "census")
			p, err := a.pipeline(ctx)
			if err != nil {
				return err
			}
			rep, sum, err := p.Census(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "documents: %d  processed: %d  failed: %d  sections: %d\n",
				sum.Documents, sum.Processed, sum.Failed, len(rep.Sections))
			fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", a.cfg.ReportPath())
			return nil
		},
	}
	s.bindBatch(cmd)
	return cmd
}

func newDeriveCmd(o *rootOptions) *cobra.Command {
	s := &stageOptions{}
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive section weights from section_report.json and write weights.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newStageApp(cmd, o, s)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()
			ctx := a.context(cmd.Context(), "derive")
			p, err := a.pipeline(ctx)
			if err != nil {
				return err
			}
			table, err := p.Derive(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "weighted sections: %d  min frequency: %g\n",
				table.Len(), a.cfg.Weights.MinFrequency)
			fmt.Fprintf(cmd.OutOrStdout(), "weights: %s\n", a.cfg.WeightsPath())
			return nil
		},
	}
	s.bindMinFrequency(cmd)
	return cmd
}

func newScoreCmd(o *rootOptions) *cobra.Command {
	s := &stageOptions{}
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score the corpus in checkpointed batches, resuming any previous run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newStageApp(cmd, o, s)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()
			ctx := a.context(cmd.Context(), "score")
			p, err := a.pipeline(ctx)
			if err != nil {
				return err
			}
			a.cleanCheckpointTemp()
			sum, err := p.Score(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run: %s  processed: %d  failed: %d  resumed: %d  batches: %d\n",
				sum.RunID, sum.Processed, sum.Failed, sum.Skipped, sum.Batches)
			return nil
		},
	}
	s.bindBatch(cmd)
	s.bindWorkers(cmd)
	return cmd
}

func newMergeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge the current run's checkpoints into the ranked scores.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()
			ctx := a.context(cmd.Context(), "merge")
			p, err := a.pipeline(ctx)
			if err != nil {
				return err
			}
			rs, err := p.Merge(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run: %s  ranked: %d  failed: %d\n", rs.RunID, rs.Len(), rs.FailedCount())
			fmt.Fprintf(cmd.OutOrStdout(), "scores: %s\n", a.cfg.ResultsPath())
			return nil
		},
	}
}

func newRunCmd(o *rootOptions) *cobra.Command {
	s := &stageOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run census, derive, score and merge in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newStageApp(cmd, o, s)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()
			ctx := a.context(cmd.Context(), "run")
			p, err := a.pipeline(ctx)
			if err != nil {
				return err
			}
			a.cleanCheckpointTemp()
			sum, err := p.Run(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("pipeline finished",
				zap.String("run_id", sum.RunID),
				zap.Duration("duration", sum.Duration),
				zap.Int("memory_releases", a.guard.Releases()),
				zap.Uint64("peak_heap_bytes", a.guard.Peak()),
			)
			printSummary(cmd.OutOrStdout(), sum, a.cfg.ResultsPath())
			return nil
		},
	}
	s.bindBatch(cmd)
	s.bindWorkers(cmd)
	s.bindMinFrequency(cmd)
	return cmd
}

// cleanCheckpointTemp removes temp files left by an interrupted checkpoint write.
func (a *app) cleanCheckpointTemp() {
	n, err := atomicfile.CleanTemp(a.cfg.Checkpoint.Dir)
	if err != nil {
		a.logger.Warn("checkpoint temp cleanup failed", zap.Error(err))
		return
	}
	if n > 0 {
		a.logger.Info("removed orphaned checkpoint temp files", zap.Int("count", n))
	}
}

func printSummary(out io.Writer, sum pipeline.Summary, resultsPath string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run:\t%s\n", sum.RunID)
	fmt.Fprintf(w, "Documents:\t%d\n", sum.Documents)
	if sum.ReportReused {
		fmt.Fprint(w, "Census:\treused structural report\n")
	} else {
		fmt.Fprintf(w, "Census:\t%d batches\n", sum.Census.Batches)
	}
	fmt.Fprintf(w, "Sections observed:\t%d\n", sum.SectionsObserved)
	fmt.Fprintf(w, "Sections weighted:\t%d\n", sum.SectionsWeighted)
	fmt.Fprintf(w, "Scored:\t%d\n", sum.Scoring.Processed)
	fmt.Fprintf(w, "Resumed from checkpoints:\t%d\n", sum.Scoring.Skipped)
	fmt.Fprintf(w, "Failed:\t%d\n", sum.Failed)
	fmt.Fprintf(w, "Ranked:\t%d\n", sum.Ranked)
	fmt.Fprintf(w, "Duration:\t%s\n", sum.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Score table:\t%s\n", resultsPath)
	_ = w.Flush()
}
