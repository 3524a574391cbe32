// Package sqlite stores finished jobs for later inspection. Nothing is read
// back into the live registry.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/infrastructure/logger"
	"github.com/bnema/clipforge/internal/port"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	DatabaseName = "clipforge.db"
	defaultLimit = 20
)

type Archive struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA cache_size = -4000", // 4MB
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

// Open opens (creating if needed) the archive in dataDir and applies pending
// migrations.
func Open(dataDir string) (*Archive, error) {
	registerHook()

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DatabaseName))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	goose.SetLogger(logger.Debug)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Record stores a terminal job, replacing an earlier record with the same id.
func (a *Archive) Record(ctx context.Context, job *domain.Job) error {
	if job == nil || !job.Status.IsTerminal() {
		return fmt.Errorf("record job: %w", domain.ErrInvalidTransition)
	}
	finished := job.UpdatedAt
	if job.FinishedAt != nil {
		finished = *job.FinishedAt
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO jobs (
			id, source_url, codec, quality, preset, stage, status, message,
			source_duration_seconds, artifact_path, artifact_filename, artifact_size_mb,
			created_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			stage = excluded.stage,
			status = excluded.status,
			message = excluded.message,
			source_duration_seconds = excluded.source_duration_seconds,
			artifact_path = excluded.artifact_path,
			artifact_filename = excluded.artifact_filename,
			artifact_size_mb = excluded.artifact_size_mb,
			finished_at = excluded.finished_at`,
		job.ID, job.SourceURL, job.Codec, job.Quality, job.Preset, int(job.Stage),
		string(job.Status), job.Message, job.SourceDurationSeconds, job.ArtifactPath,
		job.ArtifactFilename, job.ArtifactSizeMB,
		job.CreatedAt.UnixMilli(), finished.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record job %s: %w", job.ID, err)
	}
	return nil
}

// Recent lists archived jobs, most recently finished first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, source_url, codec, quality, preset, stage, status, message,
			source_duration_seconds, artifact_path, artifact_filename, artifact_size_mb,
			created_at, finished_at
		FROM jobs
		ORDER BY finished_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*domain.Job
	for rows.Next() {
		var (
			j                   domain.Job
			stage               int
			status              string
			createdMs, finishMs int64
		)
		if err := rows.Scan(
			&j.ID, &j.SourceURL, &j.Codec, &j.Quality, &j.Preset, &stage, &status, &j.Message,
			&j.SourceDurationSeconds, &j.ArtifactPath, &j.ArtifactFilename, &j.ArtifactSizeMB,
			&createdMs, &finishMs,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Stage = domain.Stage(stage)
		j.Status = domain.JobStatus(status)
		j.CreatedAt = time.UnixMilli(createdMs).UTC()
		finished := time.UnixMilli(finishMs).UTC()
		j.UpdatedAt = finished
		j.FinishedAt = &finished
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

var _ port.JobArchive = (*Archive)(nil)
