package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/infrastructure/logger"
	"github.com/bnema/clipforge/internal/port"
)

// StartRequest carries the client's job options. Zero values take defaults.
type StartRequest struct {
	URL     string
	Codec   string
	Quality *int
	Preset  string
}

// JobRunner drives one job to a terminal status.
type JobRunner interface {
	Run(ctx context.Context, id string)
}

// JobService creates jobs and owns the goroutine of every pipeline run.
type JobService struct {
	registry port.JobRegistry
	runner   JobRunner
	baseCtx  context.Context
	wg       sync.WaitGroup
}

// NewJobService binds pipeline runs to baseCtx, which should live as long as
// the server. Request contexts are never handed to a run.
func NewJobService(baseCtx context.Context, registry port.JobRegistry, runner JobRunner) *JobService {
	return &JobService{
		registry: registry,
		runner:   runner,
		baseCtx:  baseCtx,
	}
}

func (s *JobService) Start(ctx context.Context, req StartRequest) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sourceURL, err := validateSourceURL(req.URL)
	if err != nil {
		return nil, err
	}

	spec := domain.JobSpec{
		SourceURL: sourceURL,
		Codec:     strings.TrimSpace(req.Codec),
		Quality:   domain.DefaultQuality,
		Preset:    strings.TrimSpace(req.Preset),
	}
	if spec.Codec == "" {
		spec.Codec = domain.DefaultCodec
	}
	if spec.Preset == "" {
		spec.Preset = domain.DefaultPreset
	}
	if req.Quality != nil {
		spec.Quality = *req.Quality
	}

	job, err := s.registry.Create(spec)
	if err != nil {
		logger.Error.Printf("failed to create job: %v", err)
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runner.Run(s.baseCtx, job.ID)
	}()

	logger.Info.Printf("job %s queued", job.ID)
	return job, nil
}

func validateSourceURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrMissingURL
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", domain.ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", domain.ErrInvalidURL
	}
	return raw, nil
}

func (s *JobService) Get(id string) (*domain.Job, error) {
	return s.registry.Get(id)
}

func (s *JobService) List() []*domain.Job {
	return s.registry.List()
}

// Artifact returns the final file of a completed job. Unknown jobs yield
// ErrNotFound; every other job without a file on disk yields ErrNotReady.
func (s *JobService) Artifact(id string) (path, filename string, err error) {
	job, err := s.registry.Get(id)
	if err != nil {
		return "", "", err
	}
	if job.Status != domain.JobStatusCompleted || job.ArtifactPath == "" {
		return "", "", fmt.Errorf("job %s is %s: %w", id, job.Status, domain.ErrNotReady)
	}
	info, err := os.Stat(job.ArtifactPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", fmt.Errorf("artifact of %s was removed: %w", id, domain.ErrNotReady)
		}
		return "", "", fmt.Errorf("stat artifact: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", "", fmt.Errorf("artifact of %s is not a file: %w", id, domain.ErrNotReady)
	}
	return job.ArtifactPath, job.ArtifactFilename, nil
}

// Wait blocks until every started run has returned.
func (s *JobService) Wait() {
	s.wg.Wait()
}
