/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Seednode/sketchbox/internal/prompts"
	"github.com/sirupsen/logrus"
)

type removalReason int

const (
	removalExplicit removalReason = iota
	removalGraceExpired
)

func (r removalReason) String() string {
	switch r {
	case removalExplicit:
		return "left"
	case removalGraceExpired:
		return "timed out"
	}
	return "unknown"
}

// checkFreeConn rejects connections already seated somewhere other than
// code. An empty code rejects any seated connection.
func (m *Manager) checkFreeConn(conn, code string) error {
	if seated := m.seatOf(conn); seated != "" && seated != code {
		return ErrAlreadyJoined
	}
	return nil
}

// HostRoom opens a new room with the caller as its host.
func (m *Manager) HostRoom(conn, addr, nickname string) (Seat, error) {
	nick, err := validateNickname(nickname)
	if err != nil {
		return Seat{}, err
	}

	if err := m.checkFreeConn(conn, ""); err != nil {
		return Seat{}, err
	}

	if !m.joins.Allow(addr, m.clock.Now()) {
		return Seat{}, ErrRateLimited
	}

	host := &Player{
		ID:       m.newID(),
		Conn:     conn,
		Nickname: nick,
		Ready:    true,
	}

	m.mu.Lock()
	code, err := m.allocateCodeLocked()
	if err != nil {
		m.mu.Unlock()
		m.log.WithError(err).Warn("GAMES: Unable to allocate room code")
		return Seat{}, err
	}

	tok, err := m.signer.Issue(code, host.ID)
	if err != nil {
		m.mu.Unlock()
		return Seat{}, fmt.Errorf("issuing token: %w", err)
	}

	r := newRoom(code, m.clock, m.cfg.DefaultRoundDuration, prompts.Random)
	r.host = host.ID
	r.players = append(r.players, host)

	// r is not reachable by anyone else yet, so taking its lock while
	// holding m.mu cannot deadlock.
	r.mu.Lock()
	defer r.mu.Unlock()

	m.rooms[code] = r
	m.mu.Unlock()

	m.seat(r, conn)

	m.log.WithFields(logrus.Fields{"room": code, "player": host.ID}).
		Infof("GAMES: Player %q created room %s", nick, code)

	m.pub.Broadcast(code, r.lobbyEvent())
	m.pub.Send(conn, r.settingsEvent())

	return Seat{
		Code:     code,
		PlayerID: host.ID,
		Token:    tok,
		Nickname: nick,
		HostID:   host.ID,
	}, nil
}

// JoinRoom seats the caller in an existing room. Nickname collisions are
// resolved by suffixing, never by failing.
func (m *Manager) JoinRoom(conn, addr, code, nickname string) (Seat, error) {
	nick, err := validateNickname(nickname)
	if err != nil {
		return Seat{}, err
	}

	code, err = validateCode(code)
	if err != nil {
		return Seat{}, err
	}

	if err := m.checkFreeConn(conn, code); err != nil {
		return Seat{}, err
	}

	// Unknown codes still count, so guessing codes is throttled too.
	if !m.joins.Allow(addr, m.clock.Now()) {
		return Seat{}, ErrRateLimited
	}

	r, err := m.lockRoom(code)
	if err != nil {
		return Seat{}, err
	}
	defer r.mu.Unlock()

	if r.playerByConn(conn) != nil {
		return Seat{}, ErrAlreadyJoined
	}

	if m.cfg.MaxPlayers > 0 && len(r.players) >= m.cfg.MaxPlayers {
		return Seat{}, ErrRoomFull
	}

	p := &Player{
		ID:       m.newID(),
		Conn:     conn,
		Nickname: disambiguate(nick, r.nicknames()),
	}

	tok, err := m.signer.Issue(code, p.ID)
	if err != nil {
		return Seat{}, fmt.Errorf("issuing token: %w", err)
	}

	r.players = append(r.players, p)
	r.touch()
	m.seat(r, conn)

	m.log.WithFields(logrus.Fields{"room": code, "player": p.ID}).
		Infof("GAMES: Player %q joined %s", p.Nickname, code)

	m.pub.Broadcast(code, r.lobbyEvent())
	m.pub.Send(conn, r.settingsEvent())

	return Seat{
		Code:     code,
		PlayerID: p.ID,
		Token:    tok,
		Nickname: p.Nickname,
		HostID:   r.host,
	}, nil
}

// Rejoin rebinds a previously issued seat to the caller's connection. If the
// seat was already removed it is recreated under the same player ID.
func (m *Manager) Rejoin(conn, code, playerID, tok, nickname string) (Seat, error) {
	code = canonicalCode(code)

	if !m.signer.Verify(code, playerID, tok) {
		return Seat{}, ErrInvalidToken
	}

	code, err := validateCode(code)
	if err != nil {
		return Seat{}, err
	}

	if err := m.checkFreeConn(conn, code); err != nil {
		return Seat{}, err
	}

	r, err := m.lockRoom(code)
	if err != nil {
		return Seat{}, err
	}
	defer r.mu.Unlock()

	if q := r.playerByConn(conn); q != nil && q.ID != playerID {
		return Seat{}, ErrAlreadyJoined
	}

	p := r.player(playerID)
	if p == nil {
		if m.cfg.MaxPlayers > 0 && len(r.players) >= m.cfg.MaxPlayers {
			return Seat{}, ErrRoomFull
		}

		nick, err := validateNickname(stripSuffix(nickname))
		if err != nil {
			nick = fallbackNickname
		}

		p = &Player{
			ID:       playerID,
			Nickname: disambiguate(nick, r.nicknames()),
		}
		r.players = append(r.players, p)

		m.log.WithFields(logrus.Fields{"room": code, "player": p.ID}).
			Infof("GAMES: Player %q re-seated in %s", p.Nickname, code)
	} else if p.Conn != "" && p.Conn != conn {
		stale := p.Conn
		m.unseat(r, stale)
		m.pub.Disconnect(stale)
	}

	if slot, ok := r.removals[p.ID]; ok {
		slot.disarm()
		delete(r.removals, p.ID)
	}

	p.Conn = conn
	r.touch()
	m.seat(r, conn)

	m.log.WithFields(logrus.Fields{"room": code, "player": p.ID}).
		Infof("GAMES: Player %q reconnected to %s", p.Nickname, code)

	m.pub.Broadcast(code, r.lobbyEvent())
	m.pub.Send(conn, r.settingsEvent())

	now := r.clock.Now()
	if r.roundActive() && now.Before(r.endsAt) {
		m.pub.Send(conn, r.roundStartEvent(now))
	}

	return Seat{
		Code:     code,
		PlayerID: p.ID,
		Token:    tok,
		Nickname: p.Nickname,
		HostID:   r.host,
	}, nil
}

// ToggleReady flips the caller's readiness. The host is always ready.
func (m *Manager) ToggleReady(conn, code string) error {
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

	if p.ID == r.host {
		return nil
	}

	p.Ready = !p.Ready
	r.touch()

	m.pub.Broadcast(code, r.lobbyEvent())

	return nil
}

// UpdateSettings changes the round duration and/or category preference.
// Only the host may do this, and only between rounds.
func (m *Manager) UpdateSettings(conn, code string, patch SettingsPatch) error {
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

	duration := r.roundDuration
	if patch.RoundDuration != nil {
		if err := validateDuration(*patch.RoundDuration); err != nil {
			return err
		}
		duration = *patch.RoundDuration
	}

	category := r.preference
	if patch.Category != nil {
		c := strings.ToLower(strings.TrimSpace(*patch.Category))
		if !m.catalog.Has(c) {
			return ErrInvalidCategory
		}
		category = c
	}

	r.roundDuration = duration
	r.preference = category
	r.touch()

	m.pub.Broadcast(code, r.settingsEvent())

	return nil
}

// LeaveRoom removes the caller from the room immediately.
func (m *Manager) LeaveRoom(conn, code string) error {
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

	m.removePlayer(r, p.ID, removalExplicit)

	return nil
}

// Disconnect handles a transport-detected disconnect. The player keeps
// their seat for the grace period and is removed only if they have not
// rejoined by then.
func (m *Manager) Disconnect(conn string) {
	m.mu.Lock()
	code, ok := m.seats[conn]
	delete(m.seats, conn)
	m.mu.Unlock()

	if !ok {
		return
	}

	r, err := m.lockRoom(code)
	if err != nil {
		return
	}
	defer r.mu.Unlock()

	p := r.playerByConn(conn)
	if p == nil {
		return
	}

	p.Conn = ""
	m.pub.Unsubscribe(conn, code)

	if m.cfg.GracePeriod <= 0 {
		m.removePlayer(r, p.ID, removalGraceExpired)
		return
	}

	slot, ok := r.removals[p.ID]
	if !ok {
		slot = &timerSlot{}
		r.removals[p.ID] = slot
	}

	id := p.ID
	r.arm(slot, m.cfg.GracePeriod, func() {
		delete(r.removals, id)
		m.removePlayer(r, id, removalGraceExpired)
	})

	m.log.WithFields(logrus.Fields{"room": code, "player": id}).
		Infof("GAMES: Player %q disconnected from %s, holding seat for %s", p.Nickname, code, m.cfg.GracePeriod)

	m.pub.Broadcast(code, r.lobbyEvent())
}

// removePlayer is the single exit path for a seat, whether the player left
// or their grace period ran out. Callers must hold r.mu.
func (m *Manager) removePlayer(r *Room, playerID string, reason removalReason) {
	i := r.indexOf(playerID)
	if i < 0 {
		return
	}

	p := r.players[i]
	r.players = slices.Delete(r.players, i, i+1)

	if slot, ok := r.removals[playerID]; ok {
		slot.disarm()
		delete(r.removals, playerID)
	}

	if p.Conn != "" {
		m.unseat(r, p.Conn)
	}

	r.touch()

	m.log.WithFields(logrus.Fields{"room": r.code, "player": playerID}).
		Infof("GAMES: Player %q %s %s", p.Nickname, reason, r.code)

	if len(r.players) == 0 {
		m.disband(r, "empty")
		return
	}

	if r.host == playerID {
		next := r.players[0]
		r.host = next.ID
		next.Ready = true

		m.log.WithFields(logrus.Fields{"room": r.code, "player": next.ID}).
			Infof("GAMES: Player %q is now hosting %s", next.Nickname, r.code)
	}

	delete(r.participants, playerID)
	delete(r.drawings, playerID)

	m.pub.Broadcast(r.code, r.lobbyEvent())

	m.checkRoundComplete(r)
}
