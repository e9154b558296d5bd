package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ccdarank/internal/config"
	"github.com/kailas-cloud/ccdarank/internal/db/redis"
	"github.com/kailas-cloud/ccdarank/internal/repository/artifact"
	"github.com/kailas-cloud/ccdarank/internal/usecase/selection"
)

// resultSource opens the configured result source. The returned store is nil for file sources.
func (a *app) resultSource(ctx context.Context, source string) (selection.Source, *redis.Store, error) {
	switch source {
	case config.SourceFile:
		rs, err := artifact.New().LoadResults(a.cfg.ResultsPath())
		if err != nil {
			return nil, nil, fmt.Errorf("load results: %w", err)
		}
		return selection.NewMemorySource(rs), nil, nil
	case config.SourceRedis:
		store, err := a.redisStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		return a.ranking(store), store, nil
	default:
		return nil, nil, fmt.Errorf("unknown result source %q (want %s or %s)", source, config.SourceFile, config.SourceRedis)
	}
}

func newTopCmd(o *rootOptions) *cobra.Command {
	var (
		n      int
		source string
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the N richest documents of the final score table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()
			ctx := a.context(cmd.Context(), "top")

			src, store, err := a.resultSource(ctx, source)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}
			top, err := selection.New(src, selection.WithMaxLimit(a.cfg.HTTP.MaxPageSize)).Top(ctx, n)
			if err != nil {
				return err
			}
			printRanked(cmd.OutOrStdout(), top)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", selection.DefaultLimit, "Number of documents to print")
	cmd.Flags().StringVar(&source, "source", config.SourceFile, "Result source: file or redis")
	return cmd
}

func printRanked(out io.Writer, rows []selection.Ranked) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSCORE\tCONTENT\tCOMPLETENESS\tBONUS\tSECTIONS\tDOCUMENT")
	for _, r := range rows {
		doc := r.DocumentID
		if r.Failed {
			doc += " (failed: " + r.FailureReason + ")"
		}
		fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%.2f\t%.2f\t%d\t%s\n",
			r.Rank, r.TotalScore, r.Breakdown.Content, r.Breakdown.Completeness,
			r.Breakdown.CombinedBonus, len(r.SectionIDs), doc)
	}
	_ = w.Flush()
}

func newPublishCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish scores.json to Redis/Valkey for the selection API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()
			ctx := a.context(cmd.Context(), "publish")

			rs, err := artifact.New().LoadResults(a.cfg.ResultsPath())
			if err != nil {
				return fmt.Errorf("load results: %w", err)
			}
			store, err := a.redisStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := a.ranking(store).Publish(ctx, rs); err != nil {
				return fmt.Errorf("publish: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published run %s (%d documents) under prefix %q to %s\n",
				rs.RunID, rs.Len(), a.cfg.Database.KeyPrefix, strings.Join(a.cfg.Database.Addrs, ","))
			return nil
		},
	}
}

func newExportCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export scores.json as a Parquet table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()
			ctx := a.context(cmd.Context(), "export")

			repo := artifact.New()
			rs, err := repo.LoadResults(a.cfg.ResultsPath())
			if err != nil {
				return fmt.Errorf("load results: %w", err)
			}
			if err := repo.ExportParquet(ctx, a.cfg.ParquetPath(), rs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", rs.Len(), a.cfg.ParquetPath())
			return nil
		},
	}
}
