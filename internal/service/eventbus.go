package service

import (
	"sync"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/infrastructure/logger"
)

const subscriberBuffer = 256

type filteredSubscriber struct {
	ch     chan *domain.Job
	filter func(*domain.Job) bool
}

// EventBus fans job snapshots out to subscribers. Sends never block; a slow
// subscriber misses snapshots.
type EventBus struct {
	subscribers []filteredSubscriber
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// SubscribeAll receives snapshots of every job for which filter returns true.
// A nil filter accepts everything.
func (eb *EventBus) SubscribeAll(filter func(*domain.Job) bool) chan *domain.Job {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan *domain.Job, subscriberBuffer)
	eb.subscribers = append(eb.subscribers, filteredSubscriber{ch: ch, filter: filter})
	return ch
}

func (eb *EventBus) UnsubscribeAll(ch chan *domain.Job) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for i, sub := range eb.subscribers {
		if sub.ch == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish delivers a copy of job to every matching subscriber.
func (eb *EventBus) Publish(job *domain.Job) {
	if job == nil {
		return
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, sub := range eb.subscribers {
		if sub.filter == nil || sub.filter(job) {
			eb.send(sub.ch, job)
		}
	}
}

func (eb *EventBus) send(ch chan *domain.Job, job *domain.Job) {
	select {
	case ch <- job.Clone():
	default:
		logger.Warn.Printf("event bus: dropped %s snapshot of job %s for slow subscriber", job.Status, job.ID)
	}
}
