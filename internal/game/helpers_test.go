/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Seednode/sketchbox/internal/token"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

const testAddr = "192.0.2.10"

// fakeClock only fires timers from Advance, never from AfterFunc, so it is
// safe to arm timers while holding a room lock.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)

	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true

	return true
}

// Advance moves time forward and runs every timer that came due, in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now

	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	slices.SortStableFunc(due, func(a, b *fakeTimer) int {
		return a.at.Compare(b.at)
	})

	for _, t := range due {
		t.f()
	}
}

// Skew moves time forward without running timers, as if they were late.
func (c *fakeClock) Skew(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// pending returns the number of timers that are neither stopped nor fired.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}

	return n
}

type delivery struct {
	kind   string // "broadcast", "send" or "disconnect"
	target string
	ev     Event
}

// recorder is a Publisher that remembers everything it was asked to do.
type recorder struct {
	mu   sync.Mutex
	log  []delivery
	subs map[string]map[string]bool
}

func newRecorder() *recorder {
	return &recorder{subs: make(map[string]map[string]bool)}
}

func (r *recorder) Subscribe(conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subs[room] == nil {
		r.subs[room] = make(map[string]bool)
	}
	r.subs[room][conn] = true
}

func (r *recorder) Unsubscribe(conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.subs[room], conn)
}

func (r *recorder) Broadcast(room string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log = append(r.log, delivery{kind: "broadcast", target: room, ev: ev})
}

func (r *recorder) Send(conn string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log = append(r.log, delivery{kind: "send", target: conn, ev: ev})
}

func (r *recorder) Disconnect(conn string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log = append(r.log, delivery{kind: "disconnect", target: conn})
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log = nil
}

func (r *recorder) filter(kind, target, name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, d := range r.log {
		if d.kind == kind && (target == "" || d.target == target) && (name == "" || d.ev.Name == name) {
			out = append(out, d.ev)
		}
	}

	return out
}

func (r *recorder) broadcasts(name string) []Event {
	return r.filter("broadcast", "", name)
}

func (r *recorder) sentTo(conn, name string) []Event {
	return r.filter("send", conn, name)
}

func (r *recorder) disconnected(conn string) bool {
	return len(r.filter("disconnect", conn, "")) > 0
}

func (r *recorder) subscribed(conn, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.subs[room][conn]
}

// names returns the names of every broadcast, in order.
func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, d := range r.log {
		if d.kind == "broadcast" {
			out = append(out, d.ev.Name)
		}
	}

	return out
}

type harness struct {
	t      *testing.T
	m      *Manager
	clock  *fakeClock
	pub    *recorder
	signer *token.Signer
}

func newHarness(t *testing.T, configure func(*Config), opts ...Option) *harness {
	t.Helper()

	cfg := DefaultConfig()
	cfg.JoinLimit = 0
	cfg.ChatLimit = 0
	if configure != nil {
		configure(&cfg)
	}

	signer, err := token.NewSigner([]byte("test-secret"))
	require.NoError(t, err)

	h := &harness{
		t:      t,
		clock:  newFakeClock(),
		pub:    newRecorder(),
		signer: signer,
	}

	logger, _ := test.NewNullLogger()

	ids := 0
	defaults := []Option{
		WithClock(h.clock),
		WithLogger(logger),
		WithRand(func(int) int { return 0 }),
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("player-%d", ids)
		}),
	}

	h.m = New(cfg, h.pub, signer, append(defaults, opts...)...)

	return h
}

func (h *harness) host(conn, nickname string) Seat {
	h.t.Helper()

	seat, err := h.m.HostRoom(conn, testAddr, nickname)
	require.NoError(h.t, err)

	return seat
}

func (h *harness) join(conn, code, nickname string) Seat {
	h.t.Helper()

	seat, err := h.m.JoinRoom(conn, testAddr, code, nickname)
	require.NoError(h.t, err)

	return seat
}

func (h *harness) snapshot(code string) Snapshot {
	h.t.Helper()

	s, err := h.m.Snapshot(code)
	require.NoError(h.t, err)

	return s
}

// lastLobby returns the most recent lobby-update broadcast.
func (h *harness) lastLobby() LobbyUpdate {
	h.t.Helper()

	evs := h.pub.broadcasts(EventLobbyUpdate)
	require.NotEmpty(h.t, evs)

	return evs[len(evs)-1].Data.(LobbyUpdate)
}

func playerIDs(l LobbyUpdate) []string {
	ids := make([]string, len(l.Players))
	for i, p := range l.Players {
		ids[i] = p.ID
	}
	return ids
}

func nicknames(l LobbyUpdate) []string {
	names := make([]string, len(l.Players))
	for i, p := range l.Players {
		names[i] = p.Nickname
	}
	return names
}

const pngDrawing = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="
