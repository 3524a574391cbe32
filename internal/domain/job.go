package domain

import (
	"math"
	"time"
)

type JobStatus string

const (
	JobStatusQueued      JobStatus = "queued"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusDownloaded  JobStatus = "downloaded"
	JobStatusUpscaling   JobStatus = "upscaling"
	JobStatusUpscaled    JobStatus = "upscaled"
	JobStatusEncoding    JobStatus = "encoding"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusError       JobStatus = "error"
)

// IsTerminal reports whether no transition may leave the status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Stage is the ordinal of the pipeline step a job is in.
type Stage int

const (
	StageQueued Stage = iota
	StageFetch
	StageUpscale
	StageTranscode
)

const (
	MinQuality     = 15
	MaxQuality     = 35
	DefaultQuality = 22
	DefaultCodec   = "x265"
	DefaultPreset  = "medium"
)

// JobSpec holds the client-chosen parameters of a job.
type JobSpec struct {
	SourceURL string
	Codec     string
	Quality   int
	Preset    string
}

type Job struct {
	ID                    string     `json:"id"`
	SourceURL             string     `json:"sourceURL"`
	Codec                 string     `json:"codec"`
	Quality               int        `json:"quality"`
	Preset                string     `json:"preset"`
	Stage                 Stage      `json:"stage"`
	Status                JobStatus  `json:"status"`
	Progress              float64    `json:"progress"`
	ProgressIndeterminate bool       `json:"progressIndeterminate"`
	Message               string     `json:"message"`
	SourceDurationSeconds float64    `json:"sourceDurationSeconds,omitempty"`
	ArtifactPath          string     `json:"artifactPath,omitempty"`
	ArtifactFilename      string     `json:"artifactFilename,omitempty"`
	ArtifactSizeMB        float64    `json:"artifactSizeMB,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
	FinishedAt            *time.Time `json:"finishedAt,omitempty"`
}

// NewJob builds a queued job. Quality is clamped to [MinQuality, MaxQuality].
func NewJob(id string, spec JobSpec, now time.Time) *Job {
	return &Job{
		ID:        id,
		SourceURL: spec.SourceURL,
		Codec:     spec.Codec,
		Quality:   ClampQuality(spec.Quality),
		Preset:    spec.Preset,
		Stage:     StageQueued,
		Status:    JobStatusQueued,
		Message:   "Preparing...",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func ClampQuality(q int) int {
	return max(MinQuality, min(MaxQuality, q))
}

// Clone returns a copy that shares no mutable state with j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// CanTransition reports whether the state machine has an edge from -> to.
// Staying in the same non-terminal status is always allowed so progress and
// message updates do not need a transition.
func CanTransition(from, to JobStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if from == to {
		return true
	}
	if to == JobStatusError {
		return true
	}
	switch from {
	case JobStatusQueued:
		return to == JobStatusDownloading
	case JobStatusDownloading:
		return to == JobStatusDownloaded
	case JobStatusDownloaded:
		return to == JobStatusUpscaling
	case JobStatusUpscaling:
		return to == JobStatusUpscaled
	case JobStatusUpscaled:
		return to == JobStatusEncoding
	case JobStatusEncoding:
		return to == JobStatusCompleted
	default:
		return false
	}
}

// minReportedMB is the smallest size reported for a non-empty file, so a tiny
// artifact never reads as 0 MB.
const minReportedMB = 0.01

// BytesToMB converts a byte count to MiB rounded to two decimals. Any
// positive size reports at least 0.01.
func BytesToMB(size int64) float64 {
	if size <= 0 {
		return 0
	}
	return max(minReportedMB, math.Round(float64(size)/oneMegabyte*100)/100)
}
