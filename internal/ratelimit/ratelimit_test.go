package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock advances only when told to, so window math is exact.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T) (*Limiter, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	limiter := New()
	limiter.now = clock.Now
	return limiter, clock
}

func TestLimiter_DeniesSecondRequestInWindow(t *testing.T) {
	t.Parallel()

	limiter, _ := newTestLimiter(t)

	if ok, _ := limiter.Allow("key:1.2.3.4", 1, 60); !ok {
		t.Fatal("first request denied")
	}
	ok, retry := limiter.Allow("key:1.2.3.4", 1, 60)
	if ok {
		t.Fatal("second request permitted inside the window")
	}
	if retry < 1 {
		t.Errorf("retryAfter = %d, want >= 1", retry)
	}
}

func TestLimiter_PermitsAfterWindowElapses(t *testing.T) {
	t.Parallel()

	limiter, clock := newTestLimiter(t)

	limiter.Allow("id", 1, 60)
	clock.Advance(61 * time.Second)

	if ok, _ := limiter.Allow("id", 1, 60); !ok {
		t.Fatal("request denied after the window elapsed")
	}
}

func TestLimiter_RetryAfterTracksOldestEntry(t *testing.T) {
	t.Parallel()

	limiter, clock := newTestLimiter(t)

	limiter.Allow("id", 2, 60)
	clock.Advance(20 * time.Second)
	limiter.Allow("id", 2, 60)

	_, retry := limiter.Allow("id", 2, 60)
	// Oldest entry is 20s old; it leaves the window in 40s.
	if retry != 40 {
		t.Errorf("retryAfter = %d, want 40", retry)
	}
}

func TestLimiter_RetryAfterFlooredAtOne(t *testing.T) {
	t.Parallel()

	limiter, clock := newTestLimiter(t)

	limiter.Allow("id", 1, 60)
	clock.Advance(59*time.Second + 700*time.Millisecond)

	ok, retry := limiter.Allow("id", 1, 60)
	if ok {
		t.Fatal("request permitted before the window elapsed")
	}
	if retry != 1 {
		t.Errorf("retryAfter = %d, want 1", retry)
	}
}

func TestLimiter_IdentitiesAreIndependent(t *testing.T) {
	t.Parallel()

	limiter, _ := newTestLimiter(t)

	limiter.Allow("a", 1, 60)
	if ok, _ := limiter.Allow("b", 1, 60); !ok {
		t.Fatal("identity b throttled by identity a")
	}
}

func TestLimiter_ClearResetsBuckets(t *testing.T) {
	t.Parallel()

	limiter, _ := newTestLimiter(t)

	limiter.Allow("id", 1, 60)
	limiter.Clear()

	if ok, _ := limiter.Allow("id", 1, 60); !ok {
		t.Fatal("request denied after Clear")
	}
}

func TestLimiter_ConcurrentChecksStayWithinBudget(t *testing.T) {
	t.Parallel()

	limiter := New()
	const workers = 32
	const budget = 10

	var wg sync.WaitGroup
	permitted := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow("shared", budget, 60); ok {
				permitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(permitted)

	if got := len(permitted); got != budget {
		t.Errorf("%d requests permitted, want %d", got, budget)
	}
}

func BenchmarkLimiter_Allow(b *testing.B) {
	limiter := New()
	for i := 0; i < b.N; i++ {
		limiter.Allow(fmt.Sprintf("id-%d", i%64), 100, 60)
	}
}
