/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game coordinates drawing-game rooms: who is seated where, what
// the current prompt is, and when each round ends.
//
// A Manager owns a table of rooms. Each room serializes its own operations
// and timer callbacks behind a per-room mutex, so unrelated rooms never
// contend with each other. Notifications go out through a Publisher while
// that mutex is held, which keeps per-room delivery order identical to the
// order operations were applied.
package game

import (
	"context"
	"crypto/rand"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Seednode/sketchbox/internal/prompts"
	"github.com/Seednode/sketchbox/internal/ratelimit"
	"github.com/Seednode/sketchbox/internal/token"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	codeAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts  = 32
	fallbackNickname = "Player"
)

// Config holds the tunables for a Manager.
type Config struct {
	MaxPlayers           int
	DefaultRoundDuration int
	GracePeriod          time.Duration
	IdleTimeout          time.Duration
	SweepInterval        time.Duration
	MaxDrawingBytes      int
	JoinLimit            int
	JoinWindow           time.Duration
	ChatLimit            int
	ChatWindow           time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxPlayers:           8,
		DefaultRoundDuration: 60,
		GracePeriod:          15 * time.Second,
		IdleTimeout:          30 * time.Minute,
		SweepInterval:        time.Minute,
		MaxDrawingBytes:      2 << 20,
		JoinLimit:            10,
		JoinWindow:           time.Minute,
		ChatLimit:            5,
		ChatWindow:           5 * time.Second,
	}
}

// Seat is what a client learns when it takes or reclaims a seat.
type Seat struct {
	Code     string
	PlayerID string
	Token    string
	Nickname string
	HostID   string
}

// SettingsPatch is a partial settings update; nil fields are left alone.
type SettingsPatch struct {
	RoundDuration *int
	Category      *string
}

type Option func(*Manager)

func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

func WithCatalog(c *prompts.Catalog) Option {
	return func(m *Manager) { m.catalog = c }
}

// WithCodeGenerator replaces the random room code source.
func WithCodeGenerator(f func() (string, error)) Option {
	return func(m *Manager) { m.newCode = f }
}

// WithIDGenerator replaces the player ID source.
func WithIDGenerator(f func() string) Option {
	return func(m *Manager) { m.newID = f }
}

// WithRand replaces the source used to pick prompts. f must return a value
// in [0, n).
func WithRand(f func(n int) int) Option {
	return func(m *Manager) { m.intn = f }
}

// Manager is the room table plus everything rooms share.
type Manager struct {
	cfg     Config
	pub     Publisher
	signer  *token.Signer
	catalog *prompts.Catalog
	clock   Clock
	log     logrus.FieldLogger
	newCode func() (string, error)
	newID   func() string
	intn    func(n int) int

	joins *ratelimit.Limiter
	chats *ratelimit.Limiter

	mu    sync.Mutex
	rooms map[string]*Room
	seats map[string]string // connection ID -> room code
}

func New(cfg Config, pub Publisher, signer *token.Signer, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		pub:     pub,
		signer:  signer,
		catalog: prompts.Default(),
		clock:   systemClock{},
		log:     logrus.StandardLogger(),
		newCode: randomCode,
		newID:   uuid.NewString,
		joins:   ratelimit.New(cfg.JoinLimit, cfg.JoinWindow),
		chats:   ratelimit.New(cfg.ChatLimit, cfg.ChatWindow),
		rooms:   make(map[string]*Room),
		seats:   make(map[string]string),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Categories lists the categories a host may choose besides prompts.Random.
func (m *Manager) Categories() []string {
	return m.catalog.Categories()
}

// randomCode draws a room code from crypto/rand.
func randomCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, CodeLength)
	for i := range out {
		out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}

	return string(out), nil
}

// allocateCodeLocked returns an unused code. Callers must hold m.mu.
func (m *Manager) allocateCodeLocked() (string, error) {
	for range maxCodeAttempts {
		code, err := m.newCode()
		if err != nil {
			return "", err
		}
		if !codePattern.MatchString(code) {
			continue
		}
		if _, exists := m.rooms[code]; !exists {
			return code, nil
		}
	}

	return "", ErrCodeExhausted
}

// lockRoom returns the live room for code with its mutex held.
func (m *Manager) lockRoom(code string) (*Room, error) {
	m.mu.Lock()
	r, ok := m.rooms[code]
	m.mu.Unlock()

	if !ok {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRoomNotFound
	}

	return r, nil
}

func (m *Manager) seatOf(conn string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.seats[conn]
}

// seat binds conn to the room and subscribes it. Callers must hold r.mu.
func (m *Manager) seat(r *Room, conn string) {
	m.mu.Lock()
	m.seats[conn] = r.code
	m.mu.Unlock()

	m.pub.Subscribe(conn, r.code)
}

// unseat undoes seat, if conn is still bound to r. Callers must hold r.mu.
func (m *Manager) unseat(r *Room, conn string) {
	m.mu.Lock()
	if m.seats[conn] == r.code {
		delete(m.seats, conn)
	}
	m.mu.Unlock()

	m.pub.Unsubscribe(conn, r.code)
}

// disband removes r from the table and stops its timers. Any players still
// connected are disconnected. Callers must hold r.mu.
func (m *Manager) disband(r *Room, reason string) {
	if r.closed {
		return
	}
	r.closed = true

	r.deadline.disarm()
	for id, slot := range r.removals {
		slot.disarm()
		delete(r.removals, id)
	}

	for _, p := range r.players {
		if p.Conn != "" {
			m.unseat(r, p.Conn)
			m.pub.Disconnect(p.Conn)
		}
	}

	m.mu.Lock()
	if m.rooms[r.code] == r {
		delete(m.rooms, r.code)
	}
	m.mu.Unlock()

	m.log.WithField("room", r.code).Infof("GAMES: Room %s closed (%s)", r.code, reason)
}

// Snapshot returns a copy of the room's current state.
func (m *Manager) Snapshot(code string) (Snapshot, error) {
	code, err := validateCode(code)
	if err != nil {
		return Snapshot{}, err
	}

	r, err := m.lockRoom(code)
	if err != nil {
		return Snapshot{}, err
	}
	defer r.mu.Unlock()

	return r.snapshot(), nil
}

// Exists reports whether a room with this code is open.
func (m *Manager) Exists(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.rooms[canonicalCode(code)]
	return ok
}

// Len returns the number of open rooms.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.rooms)
}

// Sweep closes every room idle since before now minus the idle timeout and
// forgets stale rate limit state. It returns the number of rooms closed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	rooms := slices.Collect(maps.Values(m.rooms))
	m.mu.Unlock()

	closed := 0

	if m.cfg.IdleTimeout > 0 {
		cutoff := now.Add(-m.cfg.IdleTimeout)

		for _, r := range rooms {
			r.mu.Lock()
			if !r.closed && r.lastActivity.Before(cutoff) {
				m.disband(r, "idle")
				closed++
			}
			r.mu.Unlock()
		}
	}

	m.joins.Prune(now)
	m.chats.Prune(now)

	return closed
}

// Run sweeps idle rooms every SweepInterval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	if m.cfg.SweepInterval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(m.clock.Now()); n > 0 {
				m.log.Infof("GAMES: Reaped %d idle room(s)", n)
			}
		}
	}
}

// Close disbands every room.
func (m *Manager) Close() {
	m.mu.Lock()
	rooms := slices.Collect(maps.Values(m.rooms))
	m.mu.Unlock()

	for _, r := range rooms {
		r.mu.Lock()
		m.disband(r, "shutdown")
		r.mu.Unlock()
	}
}
