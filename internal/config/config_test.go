package config

import (
	"os"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: Config{
				Paths: PathsConfig{
					Input:  "data/input",
					Output: "data/output",
				},
				Transcribe: TranscribeConfig{
					Backend:   "whisper",
					ModelPath: "models/ggml-base.bin",
				},
			},
			wantErr: false,
		},
		{
			name: "missing input path",
			config: Config{
				Paths: PathsConfig{
					Output: "data/output",
				},
			},
			wantErr: true,
		},
		{
			name: "whisper backend without model",
			config: Config{
				Paths: PathsConfig{
					Input:  "data/input",
					Output: "data/output",
				},
				Transcribe: TranscribeConfig{
					Backend: "whisper",
				},
			},
			wantErr: true,
		},
		{
			name: "overlap not smaller than window",
			config: Config{
				Paths: PathsConfig{
					Input:  "data/input",
					Output: "data/output",
				},
				Transcribe: TranscribeConfig{
					Backend:        "gemini",
					WindowSeconds:  10,
					OverlapSeconds: 10,
				},
			},
			wantErr: true,
		},
		{
			name: "bad chunk failure policy",
			config: Config{
				Paths: PathsConfig{
					Input:  "data/input",
					Output: "data/output",
				},
				Transcribe: TranscribeConfig{
					Backend:            "gemini",
					ChunkFailurePolicy: "explode",
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Config{
		Paths: PathsConfig{
			Input:  "data/input",
			Output: "data/output",
		},
		Transcribe: TranscribeConfig{Backend: "gemini"},
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Transcribe.WindowSeconds != 30 || cfg.Transcribe.OverlapSeconds != 2 {
		t.Errorf("window/overlap defaults = %v/%v, want 30/2",
			cfg.Transcribe.WindowSeconds, cfg.Transcribe.OverlapSeconds)
	}
	if cfg.Transcribe.ChunkConcurrency != 3 {
		t.Errorf("chunk_concurrency default = %d, want 3", cfg.Transcribe.ChunkConcurrency)
	}
	if cfg.Transcribe.ChunkFailurePolicy != "degrade" {
		t.Errorf("chunk_failure_policy default = %q, want degrade", cfg.Transcribe.ChunkFailurePolicy)
	}
	if cfg.Queue.Workers != 3 || cfg.Queue.MaxAttempts != 3 {
		t.Errorf("queue defaults = %d workers / %d attempts, want 3/3",
			cfg.Queue.Workers, cfg.Queue.MaxAttempts)
	}
	if cfg.Queue.JobTimeout != 30*time.Minute {
		t.Errorf("job_timeout default = %v, want 30m", cfg.Queue.JobTimeout)
	}
	if cfg.Status.Retention != 24*time.Hour {
		t.Errorf("retention default = %v, want 24h", cfg.Status.Retention)
	}
}

func TestLoad(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	content := `
paths:
  input: "data/input"
  output: "data/output"

transcribe:
  backend: "whisper"
  model_path: "models/ggml-base.bin"
  window_seconds: 20
  overlap_seconds: 3

queue:
  workers: 5
  job_timeout: 5m

logging:
  level: "debug"
`

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Transcribe.WindowSeconds != 20 {
		t.Errorf("WindowSeconds = %v, want 20", cfg.Transcribe.WindowSeconds)
	}
	if cfg.Queue.Workers != 5 {
		t.Errorf("Workers = %v, want 5", cfg.Queue.Workers)
	}
	if cfg.Queue.JobTimeout != 5*time.Minute {
		t.Errorf("JobTimeout = %v, want 5m", cfg.Queue.JobTimeout)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	if _, err := Load("nonexistent.yaml"); err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}
