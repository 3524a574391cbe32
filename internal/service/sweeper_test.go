package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agedFile(t *testing.T, path string, age time.Duration) {
	t.Helper()
	require.NoError(t, writeFile(path, 16))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestSweeper_RemovesOnlyStaleFiles(t *testing.T) {
	layout := domain.NewLayout(t.TempDir())
	stale := []string{
		filepath.Join(layout.DownloadDir, "aaaa0001_720p.mp4"),
		filepath.Join(layout.IntermediateDir, "aaaa0001_1080p.mp4"),
		filepath.Join(layout.FinalDir, "aaaa0001_final.mkv"),
	}
	fresh := []string{
		filepath.Join(layout.DownloadDir, "bbbb0002_720p.mp4"),
		filepath.Join(layout.FinalDir, "bbbb0002_final.mp4"),
	}
	for _, p := range stale {
		agedFile(t, p, 2*time.Hour)
	}
	for _, p := range fresh {
		agedFile(t, p, 10*time.Minute)
	}
	nested := filepath.Join(layout.FinalDir, "keep", "inner.mp4")
	agedFile(t, nested, 3*time.Hour)

	result := NewSweeper(layout, time.Hour).Sweep(time.Now())

	assert.ElementsMatch(t, stale, result.Removed)
	assert.Empty(t, result.Errors)
	for _, p := range stale {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), p)
	}
	for _, p := range append(fresh, nested) {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestSweeper_MissingDirectories(t *testing.T) {
	layout := domain.NewLayout(filepath.Join(t.TempDir(), "never-created"))

	result := NewSweeper(layout, time.Hour).Sweep(time.Now())

	assert.Empty(t, result.Removed)
	assert.Empty(t, result.Errors)
}

func TestSweeper_DefaultMaxAge(t *testing.T) {
	s := NewSweeper(domain.NewLayout(t.TempDir()), 0)
	assert.Equal(t, DefaultSweepMaxAge, s.maxAge)
}

func TestSweeper_SkipsWhenBusy(t *testing.T) {
	s := NewSweeper(domain.NewLayout(t.TempDir()), time.Hour)
	s.mu.Lock()
	defer s.mu.Unlock()

	assert.True(t, s.Sweep(time.Now()).Skipped)
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	layout := domain.NewLayout(t.TempDir())
	stale := filepath.Join(layout.DownloadDir, "old_720p.mp4")
	agedFile(t, stale, 2*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSweeper(layout, time.Hour).Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(stale)
		return os.IsNotExist(err)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
