package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/scoring"
	"github.com/kailas-cloud/ccdarank/internal/weights"
)

// Result sources for the selection surfaces.
const (
	SourceFile  = "file"
	SourceRedis = "redis"
)

// Config holds the ccdarank pipeline and selection API configuration.
type Config struct {
	Corpus     CorpusConfig     `yaml:"corpus"`
	Output     OutputConfig     `yaml:"output"`
	Census     CensusConfig     `yaml:"census"`
	Weights    WeightsConfig    `yaml:"weights"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Memory     MemoryConfig     `yaml:"memory"`
	Database   DatabaseConfig   `yaml:"database"`
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CorpusConfig locates the documents and bounds a single load.
type CorpusConfig struct {
	Dir                string   `yaml:"dir"`
	Extension          string   `yaml:"extension"`
	ExcludeDirs        []string `yaml:"exclude_dirs"`
	MaxDocumentMB      int      `yaml:"max_document_mb"`
	DocumentTimeoutSec int      `yaml:"document_timeout_sec"`
}

// OutputConfig names the stage artifacts, relative to Dir unless absolute.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	ReportFile  string `yaml:"report_file"`
	WeightsFile string `yaml:"weights_file"`
	ResultsFile string `yaml:"results_file"`
	ParquetFile string `yaml:"parquet_file"`
}

// CensusConfig holds census pass settings.
type CensusConfig struct {
	BatchSize   int `yaml:"batch_size"`
	MaxExamples int `yaml:"max_examples"`
	MaxTitles   int `yaml:"max_titles"`
}

// WeightsConfig holds weight derivation settings.
type WeightsConfig struct {
	MinFrequency float64        `yaml:"min_frequency"`
	Policy       weights.Policy `yaml:"policy"`
}

// ScoringConfig holds scoring pass settings.
type ScoringConfig struct {
	BatchSize      int                  `yaml:"batch_size"`
	Workers        int                  `yaml:"workers"`
	WriteRetries   int                  `yaml:"write_retries"`
	RetryBackoffMS int                  `yaml:"retry_backoff_ms"`
	Coefficients   scoring.Coefficients `yaml:"coefficients"`
}

// CheckpointConfig holds the checkpoint directory.
type CheckpointConfig struct {
	Dir string `yaml:"dir"`
}

// MemoryConfig holds the heap ceiling. 0 disables the guard.
type MemoryConfig struct {
	LimitMB int `yaml:"limit_mb"`
}

// DatabaseConfig holds Redis/Valkey connection and publishing settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = keep published rankings forever
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
	Source          string `yaml:"source"` // file, redis (default: file)
	MaxPageSize     int    `yaml:"max_page_size"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Default returns a configuration with every default applied and policy tables filled in.
func Default() Config {
	cfg := Config{
		Weights: WeightsConfig{Policy: weights.DefaultPolicy()},
		Scoring: ScoringConfig{Coefficients: scoring.DefaultCoefficients()},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from a YAML file. Keys absent from the file keep their defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Corpus.Extension == "" {
		c.Corpus.Extension = ".xml"
	}
	if c.Corpus.MaxDocumentMB <= 0 {
		c.Corpus.MaxDocumentMB = 64
	}
	if c.Corpus.DocumentTimeoutSec <= 0 {
		c.Corpus.DocumentTimeoutSec = 30
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Output.ReportFile == "" {
		c.Output.ReportFile = "section_report.json"
	}
	if c.Output.WeightsFile == "" {
		c.Output.WeightsFile = "weights.json"
	}
	if c.Output.ResultsFile == "" {
		c.Output.ResultsFile = "scores.json"
	}
	if c.Output.ParquetFile == "" {
		c.Output.ParquetFile = "scores.parquet"
	}
	if c.Census.BatchSize == 0 {
		c.Census.BatchSize = 100
	}
	if c.Census.MaxExamples == 0 {
		c.Census.MaxExamples = 5
	}
	if c.Census.MaxTitles == 0 {
		c.Census.MaxTitles = 10
	}
	if c.Scoring.BatchSize == 0 {
		c.Scoring.BatchSize = 100
	}
	if c.Scoring.Workers == 0 {
		c.Scoring.Workers = 1
	}
	if c.Scoring.WriteRetries == 0 {
		c.Scoring.WriteRetries = 3
	}
	if c.Scoring.RetryBackoffMS == 0 {
		c.Scoring.RetryBackoffMS = 200
	}
	if c.Checkpoint.Dir == "" {
		c.Checkpoint.Dir = "checkpoints"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "ccdarank"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.Source == "" {
		c.HTTP.Source = SourceFile
	}
	if c.HTTP.MaxPageSize <= 0 {
		c.HTTP.MaxPageSize = 1000
	}
}

// Validate checks the configuration for correctness. Range violations are *domain.ConfigError.
func (c *Config) Validate() error {
	switch {
	case c.Census.BatchSize < 1:
		return domain.NewConfigError("census.batch_size", fmt.Sprintf("must be positive, got %d", c.Census.BatchSize))
	case c.Census.MaxExamples < 0:
		return domain.NewConfigError("census.max_examples", "must be non-negative")
	case c.Census.MaxTitles < 0:
		return domain.NewConfigError("census.max_titles", "must be non-negative")
	case c.Scoring.BatchSize < 1:
		return domain.NewConfigError("scoring.batch_size", fmt.Sprintf("must be positive, got %d", c.Scoring.BatchSize))
	case c.Scoring.Workers < 1:
		return domain.NewConfigError("scoring.workers", fmt.Sprintf("must be positive, got %d", c.Scoring.Workers))
	case c.Scoring.WriteRetries < 1:
		return domain.NewConfigError("scoring.write_retries", "must be positive")
	case c.Scoring.RetryBackoffMS < 0:
		return domain.NewConfigError("scoring.retry_backoff_ms", "must be non-negative")
	case c.Memory.LimitMB < 0:
		return domain.NewConfigError("memory.limit_mb", "must be non-negative")
	case c.Weights.MinFrequency < 0 || c.Weights.MinFrequency > 1 || math.IsNaN(c.Weights.MinFrequency):
		return domain.NewConfigError("weights.min_frequency",
			fmt.Sprintf("must be within [0,1], got %v", c.Weights.MinFrequency))
	case c.Database.TTLSec < 0:
		return domain.NewConfigError("database.ttl_sec", "must be non-negative")
	case c.HTTP.Port <= 0 || c.HTTP.Port > 65535:
		return domain.NewConfigError("http.port", fmt.Sprintf("must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if err := c.Weights.Policy.Validate(); err != nil {
		return err
	}
	if err := c.Scoring.Coefficients.Validate(); err != nil {
		return err
	}
	switch c.HTTP.Source {
	case SourceFile, SourceRedis:
	default:
		return domain.NewConfigError("http.source",
			fmt.Sprintf("must be %q or %q, got %q", SourceFile, SourceRedis, c.HTTP.Source))
	}
	if c.HTTP.Source == SourceRedis {
		return c.RequireDatabase()
	}
	return nil
}

// RequireDatabase fails when no Redis/Valkey address is configured.
func (c *Config) RequireDatabase() error {
	if len(c.Database.Addrs) == 0 {
		return domain.NewConfigError("database.addrs", "is required")
	}
	return nil
}

// ReportPath returns the structural report location.
func (c *Config) ReportPath() string { return c.outputPath(c.Output.ReportFile) }

// WeightsPath returns the weight table location.
func (c *Config) WeightsPath() string { return c.outputPath(c.Output.WeightsFile) }

// ResultsPath returns the final result set location.
func (c *Config) ResultsPath() string { return c.outputPath(c.Output.ResultsFile) }

// ParquetPath returns the columnar export location.
func (c *Config) ParquetPath() string { return c.outputPath(c.Output.ParquetFile) }

func (c *Config) outputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Output.Dir, name)
}

// RetryBackoff returns the checkpoint write backoff.
func (c *ScoringConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
