package ratelimit

import (
	"context"
	"sync"
	"time"
)

// WindowLimiter is an in-memory sliding-window limiter. Each bucket keeps
// the timestamps of its admitted requests; contention is scoped to one
// bucket, not the whole limiter.
type WindowLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*window
	now     func() time.Time
}

type window struct {
	mu    sync.Mutex
	times []time.Time
}

func NewWindowLimiter() *WindowLimiter {
	return &WindowLimiter{
		buckets: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *WindowLimiter) Allow(_ context.Context, bucket string, limit int, windowDur time.Duration) (Result, error) {
	if limit <= 0 || windowDur <= 0 {
		// No policy configured: admit unconditionally.
		return Result{Allowed: true, Remaining: -1}, nil
	}
	w := l.bucket(bucket)

	w.mu.Lock()
	defer w.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-windowDur)
	// Drop requests that have rolled out of the window.
	keep := w.times[:0]
	for _, ts := range w.times {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	w.times = keep
	if len(w.times) >= limit {
		retry := w.times[0].Add(windowDur).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
	}
	w.times = append(w.times, now)
	return Result{Allowed: true, Remaining: limit - len(w.times)}, nil
}

func (l *WindowLimiter) Close() error { return nil }

func (l *WindowLimiter) bucket(name string) *window {
	l.mu.RLock()
	w, ok := l.buckets[name]
	l.mu.RUnlock()
	if ok {
		return w
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok = l.buckets[name]; ok {
		return w
	}
	w = &window{}
	l.buckets[name] = w
	return w
}
