package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(maxStarts int, window time.Duration) (*StartRateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewStartRateLimiter(maxStarts, window)
	limiter.now = clock.Now
	return limiter, clock
}

func TestStartRateLimiter_Allow_FirstStart(t *testing.T) {
	limiter, _ := newTestLimiter(3, time.Minute)

	allowed, retryAfter := limiter.Allow("client1")

	assert.True(t, allowed)
	assert.Equal(t, time.Duration(0), retryAfter)
}

func TestStartRateLimiter_Allow_BlocksOverBudget(t *testing.T) {
	limiter, clock := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow("client1")
		assert.True(t, allowed)
	}

	clock.Advance(20 * time.Second)
	allowed, retryAfter := limiter.Allow("client1")

	assert.False(t, allowed)
	assert.Equal(t, 40*time.Second, retryAfter)
}

func TestStartRateLimiter_Allow_ResetsAfterWindow(t *testing.T) {
	limiter, clock := newTestLimiter(1, time.Minute)

	allowed, _ := limiter.Allow("client1")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("client1")
	assert.False(t, allowed)

	clock.Advance(time.Minute)

	allowed, _ = limiter.Allow("client1")
	assert.True(t, allowed)
}

func TestStartRateLimiter_Allow_ClientsIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	allowed, _ := limiter.Allow("client1")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("client1")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow("client2")
	assert.True(t, allowed)
}

func TestStartRateLimiter_PrunesStaleWindows(t *testing.T) {
	limiter, clock := newTestLimiter(1, time.Minute)

	for i := 0; i <= pruneThreshold; i++ {
		limiter.Allow(fmt.Sprintf("client%d", i))
	}
	assert.Equal(t, pruneThreshold+1, limiter.tracked())

	clock.Advance(2 * time.Minute)
	limiter.Allow("fresh")

	assert.Equal(t, 1, limiter.tracked())
}

func TestStartRateLimiter_Concurrent(t *testing.T) {
	limiter := NewStartRateLimiter(50, time.Hour)

	results := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		go func() {
			allowed, _ := limiter.Allow("client1")
			results <- allowed
		}()
	}

	granted := 0
	for i := 0; i < 100; i++ {
		if <-results {
			granted++
		}
	}
	assert.Equal(t, 50, granted)
}
