package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewJob(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	job := NewJob("abc12345", JobSpec{
		SourceURL: "https://example.com/v",
		Codec:     "VP9",
		Quality:   22,
		Preset:    "slow",
	}, now)

	assert.Equal(t, "abc12345", job.ID)
	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Equal(t, StageQueued, job.Stage)
	assert.Equal(t, 0.0, job.Progress)
	assert.Equal(t, 22, job.Quality)
	assert.Equal(t, now, job.CreatedAt)
	assert.Equal(t, now, job.UpdatedAt)
	assert.Nil(t, job.FinishedAt)
}

func TestClampQuality(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{input: 5, expected: 15},
		{input: 15, expected: 15},
		{input: 22, expected: 22},
		{input: 35, expected: 35},
		{input: 100, expected: 35},
		{input: -40, expected: 15},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("quality %d", tt.input), func(t *testing.T) {
			assert.Equal(t, tt.expected, ClampQuality(tt.input))
			job := NewJob("id", JobSpec{Quality: tt.input}, time.Now())
			assert.Equal(t, tt.expected, job.Quality)
		})
	}
}

func TestCanTransition(t *testing.T) {
	happyPath := []JobStatus{
		JobStatusQueued,
		JobStatusDownloading,
		JobStatusDownloaded,
		JobStatusUpscaling,
		JobStatusUpscaled,
		JobStatusEncoding,
		JobStatusCompleted,
	}

	for i := 0; i < len(happyPath)-1; i++ {
		from, to := happyPath[i], happyPath[i+1]
		assert.True(t, CanTransition(from, to), "%s -> %s", from, to)
		assert.False(t, CanTransition(to, from), "%s -> %s must not go backwards", to, from)
		assert.True(t, CanTransition(from, JobStatusError), "%s -> error", from)
	}

	assert.False(t, CanTransition(JobStatusQueued, JobStatusUpscaling), "stages cannot be skipped")
	assert.False(t, CanTransition(JobStatusDownloading, JobStatusCompleted))
	assert.True(t, CanTransition(JobStatusEncoding, JobStatusEncoding), "progress updates keep the status")

	for _, terminal := range []JobStatus{JobStatusCompleted, JobStatusError} {
		for _, to := range happyPath {
			assert.False(t, CanTransition(terminal, to), "%s is terminal", terminal)
		}
		assert.False(t, CanTransition(terminal, JobStatusError))
	}
}

func TestJob_Clone(t *testing.T) {
	finished := time.Now()
	job := &Job{ID: "a", Status: JobStatusCompleted, FinishedAt: &finished}

	clone := job.Clone()
	clone.Status = JobStatusError
	*clone.FinishedAt = finished.Add(time.Hour)

	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, finished, *job.FinishedAt)
	assert.Nil(t, (*Job)(nil).Clone())
}

func TestBytesToMB(t *testing.T) {
	assert.Equal(t, 0.0, BytesToMB(0))
	assert.Equal(t, 1.0, BytesToMB(1024*1024))
	assert.Equal(t, 0.06, BytesToMB(64*1024))
	assert.Equal(t, 12.35, BytesToMB(12948357))
	assert.Equal(t, 0.01, BytesToMB(1))
	assert.Equal(t, 0.01, BytesToMB(4000))
	assert.Equal(t, 0.0, BytesToMB(-5))
}

func TestStageError(t *testing.T) {
	cause := fmt.Errorf("wrap: %w", ErrToolExit)
	err := NewStageError(StageUpscale, "1080p upscale failed.", cause)

	assert.True(t, errors.Is(err, ErrToolExit))
	assert.Contains(t, err.Error(), "stage 2")
	assert.Contains(t, err.Error(), "1080p upscale failed.")

	var stageErr *StageError
	assert.True(t, errors.As(fmt.Errorf("outer: %w", err), &stageErr))
	assert.Equal(t, StageUpscale, stageErr.Stage)
}
