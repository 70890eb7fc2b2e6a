package store

import (
	"database/sql"
	"encoding/json"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"captionforge/internal/queue"
	"captionforge/internal/status"
)

//go:embed schema.sql
var schema string

// Store mirrors job and batch state into a SQLite database so progress
// survives restarts and can be inspected with ordinary tooling. Writes are
// best effort; the in-memory queue remains the source of truth.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer; the mirror never needs more.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveJob upserts the latest observed state of one job.
func (s *Store) SaveJob(u queue.Update) error {
	outputs, err := json.Marshal(u.Outputs)
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO jobs (id, batch_id, status, progress, stage, message, error, outputs_json, started_at, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			stage = excluded.stage,
			message = excluded.message,
			error = excluded.error,
			outputs_json = excluded.outputs_json,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at`,
		u.JobID, u.BatchID, string(u.Status), u.Progress, u.Stage, u.Message, u.Error,
		string(outputs), nullableTime(u.StartedAt), nullableTime(u.CompletedAt),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save job %s: %w", u.JobID, err)
	}
	return nil
}

// SaveBatch upserts the aggregated state of one batch.
func (s *Store) SaveBatch(p status.BatchProgress) error {
	var eta sql.NullFloat64
	if p.ETASeconds != nil {
		eta = sql.NullFloat64{Float64: *p.ETASeconds, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO batches (id, status, total_jobs, pending, processing, completed, failed, cancelled, progress, eta_seconds, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			total_jobs = excluded.total_jobs,
			pending = excluded.pending,
			processing = excluded.processing,
			completed = excluded.completed,
			failed = excluded.failed,
			cancelled = excluded.cancelled,
			progress = excluded.progress,
			eta_seconds = excluded.eta_seconds,
			updated_at = excluded.updated_at`,
		p.BatchID, p.Status, p.TotalJobs, p.Pending, p.Processing, p.Completed,
		p.Failed, p.Cancelled, p.Progress, eta,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save batch %s: %w", p.BatchID, err)
	}
	return nil
}

// Job reads one mirrored job back, mainly for inspection and tests.
func (s *Store) Job(jobID string) (queue.Update, error) {
	var (
		u          queue.Update
		st         string
		outputs    string
		startedAt  sql.NullString
		finishedAt sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT id, batch_id, status, progress, stage, message, error, outputs_json, started_at, completed_at
		FROM jobs WHERE id = ?`, jobID).
		Scan(&u.JobID, &u.BatchID, &st, &u.Progress, &u.Stage, &u.Message, &u.Error,
			&outputs, &startedAt, &finishedAt)
	if err != nil {
		return queue.Update{}, fmt.Errorf("load job %s: %w", jobID, err)
	}

	u.Status = queue.Status(st)
	if err := json.Unmarshal([]byte(outputs), &u.Outputs); err != nil {
		return queue.Update{}, fmt.Errorf("parse outputs of job %s: %w", jobID, err)
	}
	u.StartedAt = parseNullableTime(startedAt)
	u.CompletedAt = parseNullableTime(finishedAt)
	return u, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
