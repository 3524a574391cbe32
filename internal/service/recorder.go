package service

import (
	"context"
	"time"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/infrastructure/logger"
	"github.com/bnema/clipforge/internal/port"
)

const recordTimeout = 5 * time.Second

// ArchiveRecorder copies terminal job snapshots from the bus into the archive.
type ArchiveRecorder struct {
	archive port.JobArchive
	bus     *EventBus
	ch      chan *domain.Job
	done    chan struct{}
}

func NewArchiveRecorder(archive port.JobArchive, bus *EventBus) *ArchiveRecorder {
	return &ArchiveRecorder{archive: archive, bus: bus}
}

func (r *ArchiveRecorder) Start() {
	r.ch = r.bus.SubscribeAll(func(j *domain.Job) bool { return j.Status.IsTerminal() })
	r.done = make(chan struct{})
	go r.loop()
}

// Stop unsubscribes and returns once every queued snapshot is recorded.
func (r *ArchiveRecorder) Stop() {
	if r.ch == nil {
		return
	}
	r.bus.UnsubscribeAll(r.ch)
	<-r.done
	r.ch = nil
}

func (r *ArchiveRecorder) loop() {
	defer close(r.done)
	for job := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := r.archive.Record(ctx, job); err != nil {
			logger.Error.Printf("archive job %s: %v", job.ID, err)
		} else {
			logger.Debug.Printf("archived job %s (%s)", job.ID, job.Status)
		}
		cancel()
	}
}
