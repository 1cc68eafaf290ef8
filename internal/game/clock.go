/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "time"

// Clock is the source of time for rooms, so tests can drive deadlines.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// timerSlot holds at most one armed timer. Arming replaces whatever was
// armed before, and seq lets a callback that already fired detect that it
// was superseded while it waited for the room lock.
type timerSlot struct {
	timer Timer
	seq   uint64
}

func (s *timerSlot) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
}

// arm schedules fn on the room's clock. fn runs with r.mu held, and only if
// the slot was not disarmed or re-armed in the meantime and the room still
// exists. Callers must hold r.mu.
func (r *Room) arm(s *timerSlot, d time.Duration, fn func()) {
	s.disarm()

	seq := s.seq
	s.timer = r.clock.AfterFunc(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.closed || s.seq != seq || s.timer == nil {
			return
		}
		s.timer = nil

		fn()
	})
}
