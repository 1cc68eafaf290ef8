/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"math"
	"sync"
	"time"
)

// Player is one seat in a room. ID survives reconnects; Conn does not.
type Player struct {
	ID       string
	Conn     string
	Nickname string
	Ready    bool
}

func (p *Player) connected() bool {
	return p.Conn != ""
}

// Room is a single game session. Every field is guarded by mu, and every
// operation on a room, including its timer callbacks, holds mu for its
// whole duration.
type Room struct {
	mu    sync.Mutex
	clock Clock

	code    string
	host    string
	players []*Player

	roundDuration int
	preference    string

	prompt       string
	category     string
	drawings     map[string]string
	participants map[string]struct{}
	endsAt       time.Time

	createdAt    time.Time
	lastActivity time.Time

	deadline timerSlot
	removals map[string]*timerSlot

	closed bool
}

func newRoom(code string, clock Clock, roundDuration int, preference string) *Room {
	now := clock.Now()

	return &Room{
		clock:         clock,
		code:          code,
		roundDuration: roundDuration,
		preference:    preference,
		drawings:      make(map[string]string),
		participants:  make(map[string]struct{}),
		createdAt:     now,
		lastActivity:  now,
		removals:      make(map[string]*timerSlot),
	}
}

func (r *Room) touch() {
	r.lastActivity = r.clock.Now()
}

func (r *Room) roundActive() bool {
	return !r.endsAt.IsZero()
}

func (r *Room) indexOf(playerID string) int {
	for i, p := range r.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) player(playerID string) *Player {
	if i := r.indexOf(playerID); i >= 0 {
		return r.players[i]
	}
	return nil
}

func (r *Room) playerByConn(conn string) *Player {
	if conn == "" {
		return nil
	}
	for _, p := range r.players {
		if p.Conn == conn {
			return p
		}
	}
	return nil
}

func (r *Room) nicknames() []string {
	names := make([]string, len(r.players))
	for i, p := range r.players {
		names[i] = p.Nickname
	}
	return names
}

// remaining returns the whole seconds left in the round, rounded up.
func (r *Room) remaining(now time.Time) int {
	if !r.roundActive() || !now.Before(r.endsAt) {
		return 0
	}
	return int(math.Ceil(r.endsAt.Sub(now).Seconds()))
}

func (r *Room) lobbyEvent() Event {
	views := make([]PlayerView, len(r.players))
	for i, p := range r.players {
		views[i] = PlayerView{
			ID:        p.ID,
			Nickname:  p.Nickname,
			IsReady:   p.Ready || p.ID == r.host,
			Connected: p.connected(),
		}
	}

	return Event{Name: EventLobbyUpdate, Data: LobbyUpdate{Players: views, HostID: r.host}}
}

func (r *Room) settingsEvent() Event {
	return Event{Name: EventSettingsUpdate, Data: SettingsUpdate{
		RoundDuration: r.roundDuration,
		Category:      r.preference,
	}}
}

func (r *Room) roundStartEvent(now time.Time) Event {
	return Event{Name: EventRoundStart, Data: RoundStart{
		Prompt:   r.prompt,
		Duration: r.remaining(now),
		Category: r.category,
		EndsAt:   r.endsAt.UnixMilli(),
	}}
}

// Snapshot is a read-only copy of a room's state.
type Snapshot struct {
	Code          string
	HostID        string
	Players       []Player
	RoundDuration int
	Category      string
	Prompt        string
	RoundCategory string
	Participants  []string
	Drawings      map[string]string
	EndsAt        time.Time
	CreatedAt     time.Time
	LastActivity  time.Time
}

func (r *Room) snapshot() Snapshot {
	s := Snapshot{
		Code:          r.code,
		HostID:        r.host,
		Players:       make([]Player, len(r.players)),
		RoundDuration: r.roundDuration,
		Category:      r.preference,
		Prompt:        r.prompt,
		RoundCategory: r.category,
		Participants:  make([]string, 0, len(r.participants)),
		Drawings:      make(map[string]string, len(r.drawings)),
		EndsAt:        r.endsAt,
		CreatedAt:     r.createdAt,
		LastActivity:  r.lastActivity,
	}

	for i, p := range r.players {
		s.Players[i] = *p
		if _, ok := r.participants[p.ID]; ok {
			s.Participants = append(s.Participants, p.ID)
		}
	}
	for id, d := range r.drawings {
		s.Drawings[id] = d
	}

	return s
}
