// Package main implements the ccdarank CLI: census, weight derivation, resumable scoring,
// merge & rank, and the selection surfaces over the final score table.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/version"
)

// Exit codes.
const (
	exitError  = 1
	exitConfig = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, domain.ErrConfig) || errors.Is(err, domain.ErrFatalConfig) {
		return exitConfig
	}
	return exitError
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "ccdarank",
		Short: "Rank C-CDA documents by information richness",
		Long: `ccdarank measures the structure of a corpus of C-CDA documents, derives section weights
from how often each section occurs, scores every document in resumable checkpointed batches,
and merges the checkpoints into one ranked score table.

Examples:
  # Full pipeline with the local config
  ccdarank run --corpus ./data/corpus

  # Stages one by one
  ccdarank census && ccdarank derive --min-frequency 0.1 && ccdarank score && ccdarank merge

  # Inspect and serve the result
  ccdarank top -n 20
  ccdarank serve --source redis`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bind(root)

	root.AddCommand(
		newCensusCmd(opts),
		newDeriveCmd(opts),
		newScoreCmd(opts),
		newMergeCmd(opts),
		newRunCmd(opts),
		newTopCmd(opts),
		newPublishCmd(opts),
		newExportCmd(opts),
		newServeCmd(opts),
	)
	return root
}
