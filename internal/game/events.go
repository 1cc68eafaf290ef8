/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

// Outbound event names.
const (
	EventLobbyUpdate    = "lobby-update"
	EventSettingsUpdate = "settings-update"
	EventRoundStart     = "round-start"
	EventRoundEnd       = "round-end"
	EventChatMessage    = "chat-message"
)

// Event is one notification for clients.
type Event struct {
	Name string
	Data any
}

// Publisher delivers events to connections. The manager calls it while
// holding a room's lock, so implementations must not block and must not
// call back into the manager.
type Publisher interface {
	// Subscribe adds conn to the multicast group for room.
	Subscribe(conn, room string)
	// Unsubscribe removes conn from the multicast group for room.
	Unsubscribe(conn, room string)
	// Broadcast sends ev to every connection subscribed to room, in call order.
	Broadcast(room string, ev Event)
	// Send sends ev to a single connection.
	Send(conn string, ev Event)
	// Disconnect closes conn.
	Disconnect(conn string)
}

// PlayerView is how a seat appears in lobby-update.
type PlayerView struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	IsReady   bool   `json:"isReady"`
	Connected bool   `json:"connected"`
}

type LobbyUpdate struct {
	Players []PlayerView `json:"players"`
	HostID  string       `json:"hostId"`
}

type SettingsUpdate struct {
	RoundDuration int    `json:"roundDuration"`
	Category      string `json:"category"`
}

// RoundStart announces a round. EndsAt (Unix milliseconds) is authoritative;
// Duration is the number of seconds left when the event was produced.
type RoundStart struct {
	Prompt   string `json:"prompt"`
	Duration int    `json:"duration"`
	Category string `json:"category"`
	EndsAt   int64  `json:"endsAt"`
}

// RoundEnd carries every accepted drawing keyed by player ID.
type RoundEnd struct {
	Drawings map[string]string `json:"drawings"`
}

type ChatMessage struct {
	Text     string `json:"text"`
	Nickname string `json:"nickname"`
	ID       string `json:"id"`
	Time     int64  `json:"time"`
}
