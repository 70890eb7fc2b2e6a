package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"captionforge/internal/artifact"
	"captionforge/internal/batch"
	"captionforge/internal/blob"
	"captionforge/internal/config"
	"captionforge/internal/gate"
	"captionforge/internal/logger"
	"captionforge/internal/media"
	"captionforge/internal/queue"
	"captionforge/internal/status"
	"captionforge/internal/store"
	"captionforge/internal/transcribe"
	"captionforge/internal/watcher"
	"captionforge/pkg/executor"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the configuration file")
		batchDir   = flag.String("batch", "", "process every media file in this folder, then exit")
		globPat    = flag.String("glob", "", "process every file matching this glob pattern, then exit")
		watch      = flag.Bool("watch", false, "monitor the input directory for new files")
	)
	flag.Parse()

	ctx := context.Background()

	// Optional .env for API keys and local overrides.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info(ctx, "========================================")
	log.Info(ctx, "CaptionForge batch captioning pipeline")
	log.Info(ctx, "========================================")
	log.Info(ctx, "System: %s/%s, %d cores", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	log.Info(ctx, "Speech backend: %s", cfg.Transcribe.Backend)
	log.Info(ctx, "Workers: %d, chunk concurrency: %d", cfg.Queue.Workers, cfg.Transcribe.ChunkConcurrency)

	if err := ensureDirectories(cfg); err != nil {
		log.Error(ctx, "Failed to create directories: %v", err)
		os.Exit(1)
	}

	exec := executor.New()
	toolkit := media.New(exec, log)

	backend, err := buildBackend(cfg, exec, log)
	if err != nil {
		log.Error(ctx, "Failed to set up speech backend: %v", err)
		os.Exit(1)
	}

	engine := transcribe.New(toolkit, backend, log, transcribe.Options{
		WindowSeconds:  cfg.Transcribe.WindowSeconds,
		OverlapSeconds: cfg.Transcribe.OverlapSeconds,
		Concurrency:    cfg.Transcribe.ChunkConcurrency,
		FailurePolicy:  transcribe.FailurePolicy(cfg.Transcribe.ChunkFailurePolicy),
		Language:       cfg.Transcribe.Language,
		TempDir:        cfg.Paths.Temp,
	})

	blobStore, err := blob.NewFileStore(cfg.Paths.Output)
	if err != nil {
		log.Error(ctx, "Failed to set up output store: %v", err)
		os.Exit(1)
	}

	q := queue.New(log, cfg.Queue.MaxAttempts, cfg.Queue.RetryBackoff)

	var mirror status.Mirror
	if cfg.Paths.Database != "" {
		st, err := store.New(cfg.Paths.Database)
		if err != nil {
			log.Error(ctx, "Failed to open status database: %v", err)
			os.Exit(1)
		}
		defer st.Close()
		mirror = st
		log.Info(ctx, "Mirroring status to %s", cfg.Paths.Database)
	}

	reporter := status.New(q, cfg.Status, mirror, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go reporter.Run(ctx)

	pool := queue.NewPool(q, toolkit, engine, artifact.New(), blobStore,
		cfg.Queue.Workers, cfg.Queue.JobTimeout, log)
	pool.Start(ctx)

	coordinator := batch.New(q, gate.NewTierGate(nil), toolkit, cfg.Batch, reporter, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch {
	case *batchDir != "" || *globPat != "":
		err = runBatch(ctx, coordinator, reporter, log, sigChan, batch.Request{
			FolderPath:  *batchDir,
			GlobPattern: *globPat,
		})
	case *watch:
		err = runWatch(ctx, cfg, coordinator, log, sigChan)
	default:
		err = runBatch(ctx, coordinator, reporter, log, sigChan, batch.Request{
			FolderPath: cfg.Paths.Input,
		})
	}

	cancel()
	pool.Wait()

	if err != nil {
		log.Error(ctx, "%v", err)
		os.Exit(1)
	}
	log.Info(context.Background(), "Pipeline stopped")
}

// runBatch submits one batch and blocks until every job is terminal or a
// shutdown signal arrives.
func runBatch(ctx context.Context, c batch.Coordinator, r *status.Reporter, log logger.Logger, sigChan <-chan os.Signal, req batch.Request) error {
	b, err := c.CreateBatch(ctx, req)
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	log.Info(ctx, "Batch %s: %d job(s) queued", b.ID, b.TotalJobs)
	for _, rej := range b.Rejected {
		log.Warn(ctx, "Rejected %s: %s", rej.File, rej.Reason)
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			n, _ := c.CancelBatch(b.ID)
			log.Info(ctx, "Shutdown signal received, cancelled %d pending job(s)", n)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p, ok := r.Batch(b.ID)
			if !ok {
				continue
			}
			switch p.Status {
			case "completed":
				log.Info(ctx, "Batch %s completed: %d job(s)", b.ID, p.Completed)
				return nil
			case "partial", "failed", "cancelled":
				log.Warn(ctx, "Batch %s finished %s: %d completed, %d failed, %d cancelled",
					b.ID, p.Status, p.Completed, p.Failed, p.Cancelled)
				return nil
			}
		}
	}
}

// runWatch monitors the input directory, submitting each settled file as a
// single-file batch, until a shutdown signal arrives.
func runWatch(ctx context.Context, cfg *config.Config, c batch.Coordinator, log logger.Logger, sigChan <-chan os.Signal) error {
	handler := func(ctx context.Context, filePath string) error {
		_, err := c.CreateBatch(ctx, batch.Request{Files: []string{filePath}})
		return err
	}

	w, err := watcher.New(cfg.Paths.Input, handler, 500*time.Millisecond, log)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Stop()

	errChan := make(chan error, 1)
	go func() {
		if err := w.Start(ctx); err != nil && err != context.Canceled {
			errChan <- err
		}
	}()

	log.Info(ctx, "Monitoring %s, press Ctrl+C to stop", cfg.Paths.Input)

	select {
	case <-sigChan:
		log.Info(ctx, "Shutdown signal received")
		return nil
	case err := <-errChan:
		return fmt.Errorf("watcher: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildBackend(cfg *config.Config, exec executor.Executor, log logger.Logger) (transcribe.Backend, error) {
	switch cfg.Transcribe.Backend {
	case "whisper":
		return transcribe.NewWhisperBackend(exec, log,
			cfg.Transcribe.BinaryPath, cfg.Transcribe.ModelPath, cfg.Transcribe.Language), nil
	case "gemini":
		keys := geminiKeys()
		if len(keys) == 0 {
			return nil, fmt.Errorf("gemini backend needs GEMINI_API_KEYS or GEMINI_API_KEY")
		}
		return transcribe.NewGeminiBackend(keys, cfg.Transcribe.GeminiModel, log), nil
	default:
		return nil, fmt.Errorf("unknown speech backend %q", cfg.Transcribe.Backend)
	}
}

func geminiKeys() []string {
	var keys []string
	for _, k := range strings.Split(os.Getenv("GEMINI_API_KEYS"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		if k := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func ensureDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.Paths.Input,
		cfg.Paths.Output,
		cfg.Paths.Temp,
	}
	if cfg.Paths.Database != "" {
		dirs = append(dirs, filepath.Dir(cfg.Paths.Database))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
