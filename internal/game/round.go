/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"time"

	"github.com/sirupsen/logrus"
)

// StartRound moves the room from the lobby into a round. Host only.
func (m *Manager) StartRound(conn, code string) error {
	code, err := validateCode(code)
	if err != nil {
		return err
	}

	r, err := m.lockRoom(code)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()

	p := r.playerByConn(conn)
	if p == nil {
		return ErrNotInRoom
	}

	if p.ID != r.host {
		return ErrNotHost
	}

	if r.roundActive() {
		return ErrRoundActive
	}

	r.category, r.prompt = m.catalog.Pick(r.preference, m.intn)
	r.drawings = make(map[string]string)
	r.participants = make(map[string]struct{}, len(r.players))

	readinessChanged := false
	for _, q := range r.players {
		r.participants[q.ID] = struct{}{}
		if q.ID != r.host && q.Ready {
			q.Ready = false
			readinessChanged = true
		}
	}

	duration := time.Duration(r.roundDuration) * time.Second
	now := r.clock.Now()
	r.endsAt = now.Add(duration)
	r.touch()

	r.arm(&r.deadline, duration, func() {
		m.endRound(r, "time is up")
	})

	m.log.WithFields(logrus.Fields{"room": code, "category": r.category}).
		Infof("GAMES: Round started in %s with %d participant(s)", code, len(r.participants))

	if readinessChanged {
		m.pub.Broadcast(code, r.lobbyEvent())
	}
	m.pub.Broadcast(code, r.roundStartEvent(now))

	return nil
}

// SubmitDrawing records the caller's drawing for the current round. A later
// submission by the same player replaces the earlier one.
func (m *Manager) SubmitDrawing(conn, code, drawing string) error {
	code, err := validateCode(code)
	if err != nil {
		return err
	}

	r, err := m.lockRoom(code)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()

	if !r.roundActive() || !r.clock.Now().Before(r.endsAt) {
		return ErrRoundInactive
	}

	p := r.playerByConn(conn)
	if p == nil {
		return ErrNotInRoom
	}

	if _, ok := r.participants[p.ID]; !ok {
		return ErrNotInRoom
	}

	if err := validateDrawing(drawing, m.cfg.MaxDrawingBytes); err != nil {
		return err
	}

	r.drawings[p.ID] = drawing
	r.touch()

	m.log.WithFields(logrus.Fields{"room": code, "player": p.ID}).
		Infof("GAMES: Drawing from %q accepted (%d/%d)", p.Nickname, len(r.drawings), len(r.participants))

	m.checkRoundComplete(r)

	return nil
}

// checkRoundComplete ends the round once every remaining participant has
// submitted. Callers must hold r.mu.
func (m *Manager) checkRoundComplete(r *Room) {
	if !r.roundActive() {
		return
	}

	for id := range r.participants {
		if _, ok := r.drawings[id]; !ok {
			return
		}
	}

	m.endRound(r, "all drawings are in")
}

// endRound is the only way a round finishes. It is a no-op once the room is
// back in the lobby, so racing triggers produce one round-end. Callers must
// hold r.mu.
func (m *Manager) endRound(r *Room, reason string) {
	if !r.roundActive() {
		return
	}

	r.deadline.disarm()

	drawings := r.drawings

	r.endsAt = time.Time{}
	r.prompt = ""
	r.category = ""
	r.participants = make(map[string]struct{})
	r.drawings = make(map[string]string)
	r.touch()

	m.log.WithField("room", r.code).
		Infof("GAMES: Round ended in %s, %s (%d drawing(s))", r.code, reason, len(drawings))

	m.pub.Broadcast(r.code, Event{Name: EventRoundEnd, Data: RoundEnd{Drawings: drawings}})
}

// Chat relays a message to the room, stamped with the sender's seat.
func (m *Manager) Chat(conn, code, text string) error {
	text, err := validateChat(text)
	if err != nil {
		return err
	}

	code, err = validateCode(code)
	if err != nil {
		return err
	}

	r, err := m.lockRoom(code)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()

	p := r.playerByConn(conn)
	if p == nil {
		return ErrNotInRoom
	}

	now := r.clock.Now()
	if !m.chats.Allow(p.ID, now) {
		return ErrRateLimited
	}

	r.touch()

	m.pub.Broadcast(code, Event{Name: EventChatMessage, Data: ChatMessage{
		Text:     text,
		Nickname: p.Nickname,
		ID:       p.ID,
		Time:     now.UnixMilli(),
	}})

	return nil
}
