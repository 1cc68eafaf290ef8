/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package socket

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/Seednode/sketchbox/internal/game"
)

// Inbound event names.
const (
	EventHostRoom       = "host-room"
	EventJoinRoom       = "join-room"
	EventRejoinRoom     = "rejoin-room"
	EventToggleReady    = "toggle-ready"
	EventStartRound     = "start-round"
	EventUpdateSettings = "update-settings"
	EventSubmitDrawing  = "submit-drawing"
	EventChatMessage    = "chat-message"
	EventLeaveRoom      = "leave-room"

	eventAck = "ack"
)

var (
	errBadRequest   = &game.Error{Kind: game.KindValidation, Code: "BadRequest", Message: "malformed event payload"}
	errUnknownEvent = &game.Error{Kind: game.KindValidation, Code: "UnknownEvent", Message: "unknown event"}
	errInternal     = &game.Error{Kind: game.KindInternal, Code: "Internal", Message: "something went wrong"}
)

// envelope is a client frame before its payload is decoded.
type envelope struct {
	Event string          `json:"event"`
	Ack   *int64          `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// frame is every server frame except acknowledgements.
type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type ackFrame struct {
	Event string      `json:"event"`
	Ack   int64       `json:"ack"`
	OK    bool        `json:"ok"`
	Data  any         `json:"data,omitempty"`
	Error *game.Error `json:"error,omitempty"`
}

type hostRoomRequest struct {
	Nickname string `json:"nickname"`
}

type joinRoomRequest struct {
	Code     string `json:"code"`
	Nickname string `json:"nickname"`
}

type rejoinRoomRequest struct {
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
	Nickname string `json:"nickname,omitempty"`
}

// roomRequest covers events that only name a room.
type roomRequest struct {
	Code string `json:"code"`
}

type updateSettingsRequest struct {
	Code          string  `json:"code"`
	RoundDuration *int    `json:"roundDuration,omitempty"`
	Category      *string `json:"category,omitempty"`
}

type submitDrawingRequest struct {
	Code    string `json:"code"`
	Drawing string `json:"drawing"`
}

type chatMessageRequest struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

type hostRoomResponse struct {
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
	Nickname string `json:"nickname"`
}

type joinRoomResponse struct {
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
	Nickname string `json:"nickname"`
}

type rejoinRoomResponse struct {
	PlayerID string `json:"playerId"`
	HostID   string `json:"hostId"`
}

// decode strictly unmarshals a payload: unknown fields, trailing data and
// mistyped values are all rejected.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errBadRequest
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errBadRequest
	}

	if dec.More() {
		return errBadRequest
	}

	return nil
}

// fireAndForget reports whether failures of this event are dropped rather
// than acknowledged.
func fireAndForget(event string) bool {
	return event == EventToggleReady || event == EventChatMessage
}

func newAck(id int64, result any, err error) ackFrame {
	a := ackFrame{Event: eventAck, Ack: id}

	if err == nil {
		a.OK = true
		a.Data = result
		return a
	}

	var ge *game.Error
	if errors.As(err, &ge) {
		a.Error = ge
	} else {
		a.Error = errInternal
	}

	return a
}
