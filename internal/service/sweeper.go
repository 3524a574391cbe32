package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/infrastructure/logger"
)

const DefaultSweepMaxAge = time.Hour

type SweepError struct {
	Path string
	Err  error
}

type SweepResult struct {
	Removed []string
	Errors  []SweepError
	// Skipped is set when another sweep was already running.
	Skipped bool
}

// Sweeper deletes files older than maxAge from the job directories without
// regard to job state.
type Sweeper struct {
	dirs   []string
	maxAge time.Duration
	mu     sync.Mutex
}

func NewSweeper(layout domain.Layout, maxAge time.Duration) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultSweepMaxAge
	}
	return &Sweeper{dirs: layout.Dirs(), maxAge: maxAge}
}

func (s *Sweeper) Sweep(now time.Time) SweepResult {
	if !s.mu.TryLock() {
		return SweepResult{Skipped: true}
	}
	defer s.mu.Unlock()

	var result SweepResult
	cutoff := now.Add(-s.maxAge)

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, SweepError{Path: dir, Err: err})
			}
			continue
		}

		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			info, err := entry.Info()
			if err != nil {
				if !os.IsNotExist(err) {
					result.Errors = append(result.Errors, SweepError{Path: path, Err: err})
				}
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				result.Errors = append(result.Errors, SweepError{Path: path, Err: err})
				continue
			}
			result.Removed = append(result.Removed, path)
		}
	}

	for _, e := range result.Errors {
		logger.Warn.Printf("sweep: %s: %v", e.Path, e.Err)
	}
	if len(result.Removed) > 0 {
		logger.Info.Printf("sweep: removed %d stale files", len(result.Removed))
	}
	return result
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}
