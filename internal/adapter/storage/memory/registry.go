// Package memory holds live job state. It is never persisted; the archive
// keeps finished jobs for inspection only.
package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/port"
)

const maxIDAttempts = 16

type Registry struct {
	mu        sync.RWMutex
	jobs      map[string]*domain.Job
	newID     func() string
	now       func() time.Time
	publisher port.JobPublisher
}

// NewRegistry returns an empty registry. publisher may be nil.
func NewRegistry(publisher port.JobPublisher) *Registry {
	return &Registry{
		jobs:      make(map[string]*domain.Job),
		newID:     NewID,
		now:       time.Now,
		publisher: publisher,
	}
}

// NewID returns eight lowercase hex characters taken from a random UUID.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (r *Registry) Create(spec domain.JobSpec) (*domain.Job, error) {
	r.mu.Lock()

	var id string
	for range maxIDAttempts {
		candidate := r.newID()
		if _, taken := r.jobs[candidate]; !taken {
			id = candidate
			break
		}
	}
	if id == "" {
		r.mu.Unlock()
		return nil, fmt.Errorf("create job: %w", domain.ErrDuplicateID)
	}

	job := domain.NewJob(id, spec, r.now().UTC())
	r.jobs[id] = job
	snapshot := job.Clone()
	r.mu.Unlock()

	r.publish(snapshot)
	return snapshot.Clone(), nil
}

// Update applies fn to a working copy of the job and commits it if the result
// is a legal transition. Terminal jobs are frozen. fn must not block.
func (r *Registry) Update(id string, fn func(j *domain.Job)) (*domain.Job, error) {
	r.mu.Lock()

	current, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("update %s: %w", id, domain.ErrNotFound)
	}
	if current.Status.IsTerminal() {
		r.mu.Unlock()
		return nil, fmt.Errorf("update %s: %w", id, domain.ErrTerminal)
	}

	next := current.Clone()
	fn(next)

	if err := validate(current, next); err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("update %s: %w", id, err)
	}

	next.Progress = max(0, min(100, next.Progress))
	now := r.now().UTC()
	if now.Before(current.UpdatedAt) {
		now = current.UpdatedAt
	}
	next.UpdatedAt = now
	if next.Status.IsTerminal() {
		next.FinishedAt = &now
	} else {
		next.FinishedAt = nil
	}

	r.jobs[id] = next
	snapshot := next.Clone()
	r.mu.Unlock()

	r.publish(snapshot)
	return snapshot.Clone(), nil
}

func validate(current, next *domain.Job) error {
	if next.ID != current.ID || next.SourceURL != current.SourceURL || !next.CreatedAt.Equal(current.CreatedAt) {
		return fmt.Errorf("identity fields are immutable: %w", domain.ErrInvalidTransition)
	}
	if next.Stage < current.Stage {
		return fmt.Errorf("stage %d -> %d: %w", current.Stage, next.Stage, domain.ErrInvalidTransition)
	}
	if !domain.CanTransition(current.Status, next.Status) {
		return fmt.Errorf("%s -> %s: %w", current.Status, next.Status, domain.ErrInvalidTransition)
	}
	return nil
}

func (r *Registry) Get(id string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job.Clone(), nil
}

// List returns every job, newest first.
func (r *Registry) List() []*domain.Job {
	r.mu.RLock()
	jobs := make([]*domain.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(a, b int) bool {
		if !jobs[a].CreatedAt.Equal(jobs[b].CreatedAt) {
			return jobs[a].CreatedAt.After(jobs[b].CreatedAt)
		}
		return jobs[a].ID < jobs[b].ID
	})
	return jobs
}

func (r *Registry) publish(job *domain.Job) {
	if r.publisher != nil {
		r.publisher.Publish(job)
	}
}

var _ port.JobRegistry = (*Registry)(nil)
