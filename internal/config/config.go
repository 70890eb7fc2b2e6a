package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Queue      QueueConfig      `yaml:"queue"`
	Batch      BatchConfig      `yaml:"batch"`
	Status     StatusConfig     `yaml:"status"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type PathsConfig struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	Temp     string `yaml:"temp"`
	Database string `yaml:"database"`
}

type TranscribeConfig struct {
	// Backend selects the speech engine: "whisper" or "gemini".
	Backend          string  `yaml:"backend"`
	WindowSeconds    float64 `yaml:"window_seconds"`
	OverlapSeconds   float64 `yaml:"overlap_seconds"`
	ChunkConcurrency int     `yaml:"chunk_concurrency"`
	// ChunkFailurePolicy is "degrade" (skip the window, leave a timeline
	// gap) or "abort" (fail the whole job on the first bad window).
	ChunkFailurePolicy string `yaml:"chunk_failure_policy"`
	Language           string `yaml:"language"`
	ModelPath          string `yaml:"model_path"`
	BinaryPath         string `yaml:"binary_path"`
	GeminiModel        string `yaml:"gemini_model"`
}

type QueueConfig struct {
	Workers      int           `yaml:"workers"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	JobTimeout   time.Duration `yaml:"job_timeout"`
}

type BatchConfig struct {
	MaxFileSizeMB  int64    `yaml:"max_file_size_mb"`
	DefaultFormats []string `yaml:"default_formats"`
	Style          string   `yaml:"style"`
	Position       string   `yaml:"position"`
	Tier           string   `yaml:"tier"`
	ArchiveLayout  string   `yaml:"archive_layout"`
}

type StatusConfig struct {
	Retention      time.Duration `yaml:"retention"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Paths.Input == "" {
		return fmt.Errorf("paths.input is required")
	}
	if c.Paths.Output == "" {
		return fmt.Errorf("paths.output is required")
	}
	if c.Transcribe.Backend == "whisper" && c.Transcribe.ModelPath == "" {
		return fmt.Errorf("transcribe.model_path is required for the whisper backend")
	}

	if c.Paths.Temp == "" {
		c.Paths.Temp = "data/temp"
	}
	if c.Transcribe.Backend == "" {
		c.Transcribe.Backend = "whisper"
	}
	if c.Transcribe.Backend == "whisper" && c.Transcribe.BinaryPath == "" {
		c.Transcribe.BinaryPath = "whisper-cli"
	}
	if c.Transcribe.WindowSeconds == 0 {
		c.Transcribe.WindowSeconds = 30
	}
	if c.Transcribe.OverlapSeconds == 0 {
		c.Transcribe.OverlapSeconds = 2
	}
	if c.Transcribe.OverlapSeconds >= c.Transcribe.WindowSeconds {
		return fmt.Errorf("transcribe.overlap_seconds must be smaller than window_seconds")
	}
	if c.Transcribe.ChunkConcurrency == 0 {
		c.Transcribe.ChunkConcurrency = 3
	}
	if c.Transcribe.ChunkFailurePolicy == "" {
		c.Transcribe.ChunkFailurePolicy = "degrade"
	}
	if c.Transcribe.ChunkFailurePolicy != "degrade" && c.Transcribe.ChunkFailurePolicy != "abort" {
		return fmt.Errorf("transcribe.chunk_failure_policy must be \"degrade\" or \"abort\"")
	}
	if c.Transcribe.Language == "" {
		c.Transcribe.Language = "en"
	}
	if c.Transcribe.GeminiModel == "" {
		c.Transcribe.GeminiModel = "gemini-2.5-flash"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 3
	}
	if c.Queue.MaxAttempts == 0 {
		c.Queue.MaxAttempts = 3
	}
	if c.Queue.RetryBackoff == 0 {
		c.Queue.RetryBackoff = 2 * time.Second
	}
	if c.Queue.JobTimeout == 0 {
		c.Queue.JobTimeout = 30 * time.Minute
	}
	if c.Batch.MaxFileSizeMB == 0 {
		c.Batch.MaxFileSizeMB = 2048
	}
	if len(c.Batch.DefaultFormats) == 0 {
		c.Batch.DefaultFormats = []string{"srt", "vtt", "txt"}
	}
	if c.Batch.Style == "" {
		c.Batch.Style = "default"
	}
	if c.Batch.Position == "" {
		c.Batch.Position = "bottom"
	}
	if c.Batch.Tier == "" {
		c.Batch.Tier = "free"
	}
	if c.Batch.ArchiveLayout == "" {
		c.Batch.ArchiveLayout = "flat"
	}
	if c.Status.Retention == 0 {
		c.Status.Retention = 24 * time.Hour
	}
	if c.Status.SweepInterval == 0 {
		c.Status.SweepInterval = 10 * time.Minute
	}
	if c.Status.WebhookTimeout == 0 {
		c.Status.WebhookTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}
