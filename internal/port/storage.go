package port

import (
	"context"

	"github.com/bnema/clipforge/internal/domain"
)

// JobRegistry is the in-memory source of truth for job state. Every returned
// job is a snapshot the caller may keep.
type JobRegistry interface {
	Create(spec domain.JobSpec) (*domain.Job, error)
	Update(id string, fn func(j *domain.Job)) (*domain.Job, error)
	Get(id string) (*domain.Job, error)
	List() []*domain.Job
}

type JobArchive interface {
	Record(ctx context.Context, job *domain.Job) error
	Recent(ctx context.Context, limit int) ([]*domain.Job, error)
}

// JobPublisher receives a snapshot after every successful registry mutation.
type JobPublisher interface {
	Publish(job *domain.Job)
}
