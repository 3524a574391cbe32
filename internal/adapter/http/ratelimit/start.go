package ratelimit

import (
	"sync"
	"time"
)

// pruneThreshold is the number of tracked clients above which stale windows
// are dropped on the next check.
const pruneThreshold = 1024

type windowRecord struct {
	Count       int
	WindowStart time.Time
}

// StartRateLimiter caps job creation per client with a fixed window.
type StartRateLimiter struct {
	mu             sync.Mutex
	windows        map[string]*windowRecord
	maxStarts      int
	windowDuration time.Duration
	now            func() time.Time
}

func NewStartRateLimiter(maxStarts int, windowDuration time.Duration) *StartRateLimiter {
	return &StartRateLimiter{
		windows:        make(map[string]*windowRecord),
		maxStarts:      maxStarts,
		windowDuration: windowDuration,
		now:            time.Now,
	}
}

// Allow records one start for clientID. When the client is over its budget it
// returns false and the time until the window resets.
func (r *StartRateLimiter) Allow(clientID string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if len(r.windows) > pruneThreshold {
		r.prune(now)
	}

	record, exists := r.windows[clientID]
	if !exists || now.Sub(record.WindowStart) >= r.windowDuration {
		record = &windowRecord{WindowStart: now}
		r.windows[clientID] = record
	}

	if record.Count >= r.maxStarts {
		return false, record.WindowStart.Add(r.windowDuration).Sub(now)
	}

	record.Count++
	return true, 0
}

func (r *StartRateLimiter) prune(now time.Time) {
	for clientID, record := range r.windows {
		if now.Sub(record.WindowStart) >= r.windowDuration {
			delete(r.windows, clientID)
		}
	}
}

// tracked returns the number of clients with an open window.
func (r *StartRateLimiter) tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}
