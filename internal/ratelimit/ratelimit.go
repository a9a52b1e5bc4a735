package ratelimit

import (
	"log"
	"sync"
	"time"
)

const (
	DefaultLimit  = 100
	DefaultWindow = time.Minute

	// SweepInterval is how often elapsed buckets are discarded. Time
	// based, independent of request traffic.
	SweepInterval = 5 * time.Minute
)

type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window request counter keyed by client identity.
// Construct one per process and pass it by reference; there is no
// package-level instance, so tests get isolated limiters.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit  int
	window time.Duration
	now    func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New returns a Limiter allowing limit requests per window per client.
// Non-positive arguments fall back to the defaults.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// Allow reports whether a request from clientID fits in the current
// window. The first request (or the first after the window elapses)
// resets the bucket to count 1; a denied request does not increment
// the counter further.
func (l *Limiter) Allow(clientID string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[clientID]
	if !ok || now.After(b.resetAt) {
		l.buckets[clientID] = &bucket{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	if b.count >= l.limit {
		return false
	}
	b.count++
	return true
}

// StartSweeper launches a goroutine that periodically discards buckets
// whose window has elapsed, bounding memory growth. It shares the
// request-path mutex, so it is safe to run alongside live updates.
// Stops when Stop is called.
func (l *Limiter) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = SweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := l.sweep(); removed > 0 {
					log.Printf("ratelimit: sweep removed %d idle buckets", removed)
				}
			case <-l.stop:
				return
			}
		}
	}()
}

func (l *Limiter) sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, id)
			removed++
		}
	}
	return removed
}

// Stop terminates the sweeper goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
