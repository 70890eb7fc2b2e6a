package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"captionforge/internal/errs"
	"captionforge/internal/queue"
)

// supportedExtensions is the set of media containers the pipeline accepts.
// Everything else found during folder or glob resolution is skipped
// silently; an explicitly listed file with another extension is rejected.
var supportedExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
	".flv":  true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
}

// SupportedFile reports whether a path has an admissible media extension.
func SupportedFile(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

func (c *implCoordinator) CreateBatch(ctx context.Context, req Request) (*Batch, error) {
	paths, explicit, err := resolveInputs(req)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &errs.InvalidInputError{Reason: "no input files matched the request"}
	}

	batch := &Batch{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}

	options := queue.JobOptions{
		Formats:       req.Formats,
		Style:         req.Style,
		Position:      req.Position,
		ArchiveLayout: req.ArchiveLayout,
		Tier:          req.Tier,
	}
	if len(options.Formats) == 0 {
		options.Formats = c.cfg.DefaultFormats
	}
	if options.Style == "" {
		options.Style = c.cfg.Style
	}
	if options.Position == "" {
		options.Position = c.cfg.Position
	}
	if options.ArchiveLayout == "" {
		options.ArchiveLayout = c.cfg.ArchiveLayout
	}
	if options.Tier == "" {
		options.Tier = c.cfg.Tier
	}

	type dedupKey struct {
		name string
		size int64
	}
	seen := make(map[dedupKey]bool)

	var jobs []*queue.Job
	for _, path := range paths {
		name := filepath.Base(path)

		ext := strings.ToLower(filepath.Ext(path))
		if !supportedExtensions[ext] {
			if explicit {
				batch.Rejected = append(batch.Rejected, Rejection{
					File:   name,
					Reason: fmt.Sprintf("unsupported file type %q", ext),
				})
			}
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			batch.Rejected = append(batch.Rejected, Rejection{
				File:   name,
				Reason: fmt.Sprintf("unreadable: %v", err),
			})
			continue
		}
		if info.IsDir() {
			continue
		}
		sizeMB := info.Size() / (1 << 20)
		if sizeMB > c.cfg.MaxFileSizeMB {
			batch.Rejected = append(batch.Rejected, Rejection{
				File:   name,
				Reason: fmt.Sprintf("file is %d MB, limit is %d MB", sizeMB, c.cfg.MaxFileSizeMB),
			})
			continue
		}

		// Same filename and size within one batch is treated as the same
		// content; the first occurrence wins.
		key := dedupKey{name: name, size: info.Size()}
		if seen[key] {
			batch.DuplicatesDropped++
			continue
		}
		seen[key] = true

		decision := c.gate.CheckQuota(options.Tier, c.durationMinutes(ctx, path, info.Size()), c.jobsThisMonth())
		if !decision.Allowed {
			batch.Rejected = append(batch.Rejected, Rejection{
				File:   name,
				Reason: decision.Err().Error(),
			})
			continue
		}

		jobs = append(jobs, &queue.Job{
			ID:      uuid.New().String(),
			BatchID: batch.ID,
			Source: queue.SourceFile{
				Name:      name,
				Path:      path,
				SizeBytes: info.Size(),
			},
			Options: options,
		})
		c.countJob()
	}

	if len(jobs) == 0 {
		return nil, &errs.InvalidInputError{
			Reason: fmt.Sprintf("no admissible files in batch (%d rejected)", len(batch.Rejected)),
		}
	}

	for _, job := range jobs {
		if err := c.queue.Enqueue(job); err != nil {
			return nil, fmt.Errorf("enqueue %s: %w", job.Source.Name, err)
		}
		batch.JobIDs = append(batch.JobIDs, job.ID)
	}
	batch.TotalJobs = len(batch.JobIDs)

	c.mu.Lock()
	c.batches[batch.ID] = batch
	c.mu.Unlock()

	if c.sink != nil {
		c.sink.RegisterBatch(batch.ID, batch.JobIDs)
	}

	c.logger.Info(ctx, "Batch %s admitted: %d job(s), %d duplicate(s) dropped, %d rejected",
		batch.ID, batch.TotalJobs, batch.DuplicatesDropped, len(batch.Rejected))
	return batch, nil
}

func (c *implCoordinator) CancelBatch(batchID string) (int, error) {
	c.mu.Lock()
	_, ok := c.batches[batchID]
	c.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("unknown batch %s", batchID)
	}

	n := c.queue.CancelBatch(batchID)
	c.logger.Info(context.Background(), "Batch %s cancelled: %d pending job(s) removed", batchID, n)
	return n, nil
}

func (c *implCoordinator) Get(batchID string) (*Batch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.batches[batchID]
	return b, ok
}

// durationMinutes probes the media duration for the quota check. When the
// probe fails (tool missing, corrupt header) it falls back to a size-based
// estimate of roughly 8 MB per minute so admission still gets a number.
func (c *implCoordinator) durationMinutes(ctx context.Context, path string, sizeBytes int64) float64 {
	if c.media != nil {
		if seconds, err := c.media.ProbeDuration(ctx, path); err == nil {
			return seconds / 60
		}
	}
	return float64(sizeBytes) / (8 << 20)
}

// jobsThisMonth returns the admitted-job count for the current month,
// resetting the counter on month rollover.
func (c *implCoordinator) jobsThisMonth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := time.Now().Format("2006-01")
	if key != c.monthKey {
		c.monthKey = key
		c.monthly = 0
	}
	return c.monthly
}

func (c *implCoordinator) countJob() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.monthly++
}

// resolveInputs expands the request into concrete file paths. explicit is
// true when the caller named files directly, which makes unsupported
// extensions a reportable rejection instead of a silent skip.
func resolveInputs(req Request) (paths []string, explicit bool, err error) {
	selectors := 0
	if len(req.Files) > 0 {
		selectors++
	}
	if req.FolderPath != "" {
		selectors++
	}
	if req.GlobPattern != "" {
		selectors++
	}
	if selectors != 1 {
		return nil, false, &errs.InvalidInputError{
			Reason: "exactly one of files, folder or glob must be given",
		}
	}

	switch {
	case len(req.Files) > 0:
		return req.Files, true, nil

	case req.FolderPath != "":
		entries, err := os.ReadDir(req.FolderPath)
		if err != nil {
			return nil, false, &errs.InvalidInputError{
				Reason: fmt.Sprintf("read folder: %v", err),
			}
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			paths = append(paths, filepath.Join(req.FolderPath, e.Name()))
		}
		sort.Strings(paths)
		return paths, false, nil

	default:
		matches, err := filepath.Glob(req.GlobPattern)
		if err != nil {
			return nil, false, &errs.InvalidInputError{
				Reason: fmt.Sprintf("bad glob pattern: %v", err),
			}
		}
		sort.Strings(matches)
		return matches, false, nil
	}
}
