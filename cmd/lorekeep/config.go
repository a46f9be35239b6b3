package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/poiesic/lorekeep"
	"github.com/poiesic/lorekeep/ai"
	"github.com/poiesic/lorekeep/crawl"
	"github.com/poiesic/lorekeep/extract"
	"github.com/poiesic/lorekeep/processing"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	envCrawlAPIKey    = "LOREKEEP_CRAWL_API_KEY"
	envEmbeddingToken = "LOREKEEP_EMBEDDING_TOKEN"
	defaultConfigFile = "lorekeep.yaml"
	defaultFetchTries = 3
	defaultFetchDelay = time.Second
)

type crawlSection struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	FetchRetries      int           `yaml:"fetch_retries"`
	FetchRetryDelay   time.Duration `yaml:"fetch_retry_delay"`
}

type embeddingSection struct {
	Host      string `yaml:"host"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

type processingSection struct {
	ChunkSize      int           `yaml:"chunk_size"`
	ChunkOverlap   int           `yaml:"chunk_overlap"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	BatchSize      int           `yaml:"batch_size"`
	ReportInterval int           `yaml:"report_interval"`
}

// appConfig is the YAML config file layout. Zero fields keep library defaults.
type appConfig struct {
	Database    string            `yaml:"database"`
	MaxFileSize int64             `yaml:"max_file_size"`
	Crawl       crawlSection      `yaml:"crawl"`
	Embedding   embeddingSection  `yaml:"embedding"`
	Processing  processingSection `yaml:"processing"`

	// Secrets only come from the environment.
	crawlAPIKey    string
	embeddingToken string
}

// defaultAppConfig mirrors the package defaults.
func defaultAppConfig() *appConfig {
	crawlCfg := crawl.DefaultConfig()
	aiCfg := ai.DefaultConfig()
	procCfg := processing.DefaultConfig()
	return &appConfig{
		MaxFileSize: extract.DefaultMaxSize,
		Crawl: crawlSection{
			BaseURL:         crawlCfg.BaseURL,
			Timeout:         crawlCfg.Timeout,
			Burst:           crawlCfg.Burst,
			FetchRetries:    defaultFetchTries,
			FetchRetryDelay: defaultFetchDelay,
		},
		Embedding: embeddingSection{
			Host:      aiCfg.EmbeddingHost,
			Model:     aiCfg.EmbeddingModel,
			BatchSize: aiCfg.BatchSize,
		},
		Processing: processingSection{
			ChunkSize:      procCfg.ChunkSize,
			ChunkOverlap:   procCfg.ChunkOverlap,
			MaxRetries:     procCfg.MaxRetries,
			RetryDelay:     procCfg.RetryDelay,
			BatchSize:      procCfg.BatchSize,
			ReportInterval: procCfg.ReportInterval,
		},
	}
}

// loadConfig reads path over the defaults. A missing file is not an error
// unless required is set.
func loadConfig(path string, required bool) (*appConfig, error) {
	cfg := defaultAppConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// resolveConfig loads the config file named by --config and applies the
// environment and any explicitly set flags on top of it.
func resolveConfig(c *cli.Context) (*appConfig, error) {
	path := c.String("config")
	cfg, err := loadConfig(path, c.IsSet("config"))
	if err != nil {
		return nil, err
	}

	cfg.crawlAPIKey = os.Getenv(envCrawlAPIKey)
	cfg.embeddingToken = os.Getenv(envEmbeddingToken)

	if c.IsSet("db") || cfg.Database == "" {
		cfg.Database = c.String("db")
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.Model = c.String("embedding-model")
	}
	if c.IsSet("crawl-url") {
		cfg.Crawl.BaseURL = c.String("crawl-url")
	}
	if c.IsSet("chunk-size") {
		cfg.Processing.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("chunk-overlap") {
		cfg.Processing.ChunkOverlap = c.Int("chunk-overlap")
	}
	if c.IsSet("max-retries") {
		cfg.Processing.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		cfg.Processing.RetryDelay = c.Duration("retry-delay")
	}

	if cfg.Database == "" {
		return nil, errors.New("database path is required (--db or database in config)")
	}
	return cfg, nil
}

// databaseOptions turns the resolved config into facade options.
func (cfg *appConfig) databaseOptions() ([]lorekeep.DatabaseOption, error) {
	aiCfg := ai.NewConfig(
		ai.WithEmbeddingHost(cfg.Embedding.Host),
		ai.WithEmbeddingModel(cfg.Embedding.Model),
		ai.WithEmbeddingToken(cfg.embeddingToken),
		ai.WithBatchSize(cfg.Embedding.BatchSize),
	)
	if err := aiCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	crawlCfg := crawl.NewConfig(
		crawl.WithBaseURL(cfg.Crawl.BaseURL),
		crawl.WithAPIKey(cfg.crawlAPIKey),
		crawl.WithTimeout(cfg.Crawl.Timeout),
		crawl.WithRateLimit(cfg.Crawl.RequestsPerSecond, cfg.Crawl.Burst),
	)

	procCfg := &processing.Config{
		ChunkSize:      cfg.Processing.ChunkSize,
		ChunkOverlap:   cfg.Processing.ChunkOverlap,
		MaxRetries:     cfg.Processing.MaxRetries,
		RetryDelay:     cfg.Processing.RetryDelay,
		BatchSize:      cfg.Processing.BatchSize,
		ReportInterval: cfg.Processing.ReportInterval,
	}
	if err := procCfg.Validate(); err != nil {
		return nil, err
	}

	return []lorekeep.DatabaseOption{
		lorekeep.WithAIConfig(aiCfg),
		lorekeep.WithCrawlConfig(crawlCfg),
		lorekeep.WithProcessingConfig(procCfg),
		lorekeep.WithMaxFileSize(cfg.MaxFileSize),
		lorekeep.WithFetchRetries(cfg.Crawl.FetchRetries, cfg.Crawl.FetchRetryDelay),
	}, nil
}
