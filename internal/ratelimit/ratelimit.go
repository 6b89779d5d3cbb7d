// Package ratelimit implements the fixed-window request governor that
// protects the serving boundary. Buckets are per identity, held in memory
// for the process lifetime, and pruned on every check.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks request timestamps per identity. The zero value is not
// usable; construct with New.
type Limiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time

	// now is swappable in tests.
	now func() time.Time
}

// New returns an empty limiter.
func New() *Limiter {
	return &Limiter{
		hits: make(map[string][]time.Time),
		now:  time.Now,
	}
}

// Allow records one request for identity and reports whether it fits inside
// the window. When denied, retryAfter is the whole seconds until the oldest
// retained request leaves the window, floored at 1.
//
// Entries older than now-window are pruned before counting, so a bucket
// never holds a timestamp outside the current window.
func (l *Limiter) Allow(identity string, maxRequests, windowSeconds int) (permitted bool, retryAfter int) {
	now := l.now()
	window := time.Duration(windowSeconds) * time.Second
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.hits[identity]
	kept := bucket[:0]
	for _, ts := range bucket {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= maxRequests {
		l.hits[identity] = kept
		retry := int((window - now.Sub(kept[0])).Seconds())
		if retry < 1 {
			retry = 1
		}
		return false, retry
	}

	l.hits[identity] = append(kept, now)
	return true, 0
}

// Clear drops every bucket. Test helper.
func (l *Limiter) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits = make(map[string][]time.Time)
}
