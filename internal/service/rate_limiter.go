package service

import (
	"sync"
	"time"
)

// AttemptLimiter manages per-key sliding-window limits on login and signup
// attempts. Keys are client IPs.
type AttemptLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	window   time.Duration
	maxReqs  int
	now      func() time.Time
}

// NewAttemptLimiter creates a new rate limiter. maxReqs <= 0 disables it.
func NewAttemptLimiter(window time.Duration, maxReqs int) *AttemptLimiter {
	return &AttemptLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		maxReqs:  maxReqs,
		now:      time.Now,
	}
}

// Allow records an attempt for key and reports whether it is within the limit.
func (r *AttemptLimiter) Allow(key string) bool {
	if r.maxReqs <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	// Clean old requests
	if reqs, exists := r.requests[key]; exists {
		var valid []time.Time
		for _, t := range reqs {
			if now.Sub(t) < r.window {
				valid = append(valid, t)
			}
		}
		if len(valid) == 0 {
			delete(r.requests, key)
		} else {
			r.requests[key] = valid
		}
	}

	if len(r.requests[key]) >= r.maxReqs {
		return false
	}

	r.requests[key] = append(r.requests[key], now)
	return true
}
