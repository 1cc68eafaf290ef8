/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package ratelimit throttles events per caller key (an address, a player).
//
// Each key keeps the times of its accepted events. An event is allowed only
// while fewer than limit accepted events fall inside the window ending now,
// so no window of that length ever holds more than limit events.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a set of per-key sliding-window counters. The zero value is
// not usable.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
}

// New returns a limiter allowing limit events per window for each key.
// A non-positive limit or window disables limiting.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
	}
}

func (l *Limiter) enabled() bool {
	return l.limit > 0 && l.window > 0
}

// expire drops the leading timestamps at or before now minus the window.
// Accepted times are appended in order, so the survivors are a suffix.
func (l *Limiter) expire(hits []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)

	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}

	return hits[i:]
}

// Allow reports whether key may perform one more event at now, and records
// it if so.
func (l *Limiter) Allow(key string, now time.Time) bool {
	if !l.enabled() {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.expire(l.hits[key], now)
	if len(hits) >= l.limit {
		l.hits[key] = hits
		return false
	}

	l.hits[key] = append(hits, now)

	return true
}

// Prune forgets keys with no accepted event inside the window ending at now.
func (l *Limiter) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, hits := range l.hits {
		if len(l.expire(hits, now)) == 0 {
			delete(l.hits, key)
			removed++
		}
	}

	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.hits)
}
