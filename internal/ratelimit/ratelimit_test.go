/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestAllow_Burst(t *testing.T) {
	l := New(3, time.Second)

	assert.True(t, l.Allow("a", epoch))
	assert.True(t, l.Allow("a", epoch))
	assert.True(t, l.Allow("a", epoch))
	assert.False(t, l.Allow("a", epoch))

	// Keys are independent.
	assert.True(t, l.Allow("b", epoch))
}

func TestAllow_SlidingWindow(t *testing.T) {
	l := New(2, time.Second)

	assert.True(t, l.Allow("a", epoch))
	assert.True(t, l.Allow("a", epoch.Add(600*time.Millisecond)))
	assert.False(t, l.Allow("a", epoch.Add(900*time.Millisecond)))

	// The first event leaves the window after exactly one window.
	assert.True(t, l.Allow("a", epoch.Add(time.Second)))
	assert.False(t, l.Allow("a", epoch.Add(1500*time.Millisecond)))

	// The second event leaves the window at 1.6s, freeing one slot.
	assert.True(t, l.Allow("a", epoch.Add(1600*time.Millisecond)))
	assert.False(t, l.Allow("a", epoch.Add(1700*time.Millisecond)))
}

func TestAllow_NeverExceedsLimitInAnyWindow(t *testing.T) {
	l := New(5, 5*time.Second)

	var accepted []time.Time
	for i := range 200 {
		now := epoch.Add(time.Duration(i) * 100 * time.Millisecond)
		if l.Allow("p", now) {
			accepted = append(accepted, now)
		}
	}

	// 20s of steady attempts admit five per five seconds.
	assert.Len(t, accepted, 20)

	for i, start := range accepted {
		inWindow := 0
		for _, at := range accepted[i:] {
			if at.Sub(start) < 5*time.Second {
				inWindow++
			}
		}
		assert.LessOrEqual(t, inWindow, 5, "window starting at %s", start.Sub(epoch))
	}
}

func TestAllow_RejectionsDoNotExtendWindow(t *testing.T) {
	l := New(1, time.Second)

	assert.True(t, l.Allow("a", epoch))
	for i := 1; i < 10; i++ {
		assert.False(t, l.Allow("a", epoch.Add(time.Duration(i)*90*time.Millisecond)))
	}
	assert.True(t, l.Allow("a", epoch.Add(time.Second)))
}

func TestAllow_Disabled(t *testing.T) {
	for _, l := range []*Limiter{New(0, time.Second), New(5, 0)} {
		for range 100 {
			assert.True(t, l.Allow("a", epoch))
		}
		assert.Zero(t, l.Len())
	}
}

func TestPrune(t *testing.T) {
	l := New(1, time.Minute)

	l.Allow("old", epoch)
	l.Allow("new", epoch.Add(59*time.Second))

	assert.Equal(t, 1, l.Prune(epoch.Add(time.Minute)))
	assert.Equal(t, 1, l.Len())

	// A pruned key starts with an empty window again.
	assert.True(t, l.Allow("old", epoch.Add(time.Minute)))
}

func TestAllow_Concurrent(t *testing.T) {
	l := New(10, time.Hour)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared", epoch) {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, allowed.Load())
}
