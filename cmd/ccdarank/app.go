package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ccdarank/internal/census"
	"github.com/kailas-cloud/ccdarank/internal/checkpoint"
	"github.com/kailas-cloud/ccdarank/internal/config"
	"github.com/kailas-cloud/ccdarank/internal/corpus"
	"github.com/kailas-cloud/ccdarank/internal/db/redis"
	"github.com/kailas-cloud/ccdarank/internal/loader"
	logpkg "github.com/kailas-cloud/ccdarank/internal/logger"
	"github.com/kailas-cloud/ccdarank/internal/memory"
	"github.com/kailas-cloud/ccdarank/internal/metrics"
	"github.com/kailas-cloud/ccdarank/internal/repository/artifact"
	"github.com/kailas-cloud/ccdarank/internal/repository/ranking"
	"github.com/kailas-cloud/ccdarank/internal/scoring"
	"github.com/kailas-cloud/ccdarank/internal/usecase/pipeline"
)

// rootOptions are the persistent flags. Set flags override the config file.
type rootOptions struct {
	env           string
	configPath    string
	logLevel      string
	corpusDir     string
	outputDir     string
	checkpointDir string
	memoryLimitMB int
}

func (o *rootOptions) bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.env, "env", config.GetEnv(), "Environment: selects config/<env>.yaml and the log format")
	f.StringVar(&o.configPath, "config", "", "Config file path (overrides --env lookup)")
	f.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&o.corpusDir, "corpus", "", "Corpus directory")
	f.StringVar(&o.outputDir, "output", "", "Directory for section_report.json, weights.json and scores.json")
	f.StringVar(&o.checkpointDir, "checkpoints", "", "Checkpoint directory")
	f.IntVar(&o.memoryLimitMB, "memory-limit-mb", 0, "Heap ceiling in MB before a forced release (0 keeps config)")
}

// app is the per-command dependency set built from config and flags.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	guard  *memory.Guard
}

func newApp(cmd *cobra.Command, o *rootOptions) (*app, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load(o.env)
		// No config/<env>.yaml: run on defaults and flags.
		if errors.Is(err, fs.ErrNotExist) {
			cfg, err = config.Default(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("corpus") {
		cfg.Corpus.Dir = o.corpusDir
	}
	if flags.Changed("output") {
		cfg.Output.Dir = o.outputDir
	}
	if flags.Changed("checkpoints") {
		cfg.Checkpoint.Dir = o.checkpointDir
	}
	if flags.Changed("memory-limit-mb") {
		cfg.Memory.LimitMB = o.memoryLimitMB
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger, err := logpkg.NewLogger(o.env, level)
	if err != nil {
		return nil, err
	}

	metrics.RegisterPipelineMetrics()
	return &app{cfg: cfg, logger: logger, guard: memory.NewGuard(cfg.Memory.LimitMB)}, nil
}

func (a *app) context(ctx context.Context, stage string) context.Context {
	return logpkg.WithStage(logpkg.ContextWithLogger(ctx, a.logger), stage)
}

func (a *app) loader() *loader.Loader {
	return loader.New(loader.Options{
		MaxBytes: int64(a.cfg.Corpus.MaxDocumentMB) << 20,
		Timeout:  time.Duration(a.cfg.Corpus.DocumentTimeoutSec) * time.Second,
	})
}

func (a *app) checkpoints() *checkpoint.Store {
	return checkpoint.NewStore(a.cfg.Checkpoint.Dir)
}

func (a *app) pipeline(ctx context.Context) (*pipeline.Service, error) {
	if a.cfg.Corpus.Dir == "" {
		return nil, fmt.Errorf("corpus directory is required (--corpus or corpus.dir)")
	}
	ld := a.loader()
	log := logpkg.FromContext(ctx)

	ce, err := census.New(ld, a.cfg.Census.BatchSize)
	if err != nil {
		return nil, err
	}
	ce = ce.WithLogger(log.Named("census")).
		WithGuard(a.guard).
		WithRetention(a.cfg.Census.MaxExamples, a.cfg.Census.MaxTitles)

	store := a.checkpoints()
	se, err := scoring.New(ld, store, scoring.Options{
		BatchSize:    a.cfg.Scoring.BatchSize,
		Workers:      a.cfg.Scoring.Workers,
		WriteRetries: a.cfg.Scoring.WriteRetries,
		RetryBackoff: a.cfg.Scoring.RetryBackoff(),
		Coefficients: &a.cfg.Scoring.Coefficients,
	})
	if err != nil {
		return nil, err
	}
	se = se.WithLogger(log.Named("scoring")).WithGuard(a.guard)

	lister := corpus.NewLister(a.cfg.Corpus.Extension).WithExcludeDirs(a.cfg.Corpus.ExcludeDirs...)
	paths := pipeline.Paths{
		Corpus:  a.cfg.Corpus.Dir,
		Report:  a.cfg.ReportPath(),
		Weights: a.cfg.WeightsPath(),
		Results: a.cfg.ResultsPath(),
	}
	log.Debug("pipeline configured",
		zap.String("corpus", paths.Corpus),
		zap.Int64("max_document_bytes", ld.MaxBytes()),
		zap.Uint64("memory_limit_bytes", a.guard.LimitBytes()),
	)
	return pipeline.New(lister, ce, se, artifact.New(), store, paths,
		pipeline.WithLogger(log),
		pipeline.WithPolicy(a.cfg.Weights.MinFrequency, a.cfg.Weights.Policy),
	), nil
}

// redisStore connects to Redis/Valkey and waits until it answers.
func (a *app) redisStore(ctx context.Context) (*redis.Store, error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	store, err := redis.NewStore(redis.Config{
		Addrs:    a.cfg.Database.Addrs,
		Username: a.cfg.Database.Username,
		Password: a.cfg.Database.Password,
		DB:       a.cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	timeout := time.Duration(a.cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("redis not ready: %w", err)
	}
	return store, nil
}

func (a *app) ranking(store *redis.Store) *ranking.Repo {
	return ranking.New(store, a.cfg.Database.KeyPrefix, time.Duration(a.cfg.Database.TTLSec)*time.Second)
}
