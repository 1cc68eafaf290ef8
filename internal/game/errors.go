/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
)

// Kind groups errors by how callers are expected to react to them.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindCapacity      Kind = "capacity"
	KindRateLimit     Kind = "rate_limit"
	KindInternal      Kind = "internal"
)

// Error is returned by every Manager operation that can fail. Two errors
// match under errors.Is when their codes match.
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrInvalidNickname = newError(KindValidation, "InvalidNickname", "nickname must be 2-15 characters of letters, digits, spaces, '.', '_' or '-'")
	ErrInvalidCode     = newError(KindValidation, "InvalidCode", "room code must be 5 letters or digits")
	ErrInvalidDuration = newError(KindValidation, "InvalidDuration", "round duration must be between 15 and 300 seconds")
	ErrInvalidCategory = newError(KindValidation, "InvalidCategory", "unknown category")
	ErrInvalidChat     = newError(KindValidation, "InvalidChat", "chat messages must be 1-120 characters")
	ErrInvalidDrawing  = newError(KindValidation, "InvalidDrawing", "drawing must be a base64 png, jpeg or webp data URI")
	ErrTooLarge        = newError(KindValidation, "TooLarge", "drawing is too large")
	ErrRoundInactive   = newError(KindValidation, "RoundInactive", "no round is in progress")

	ErrRoomNotFound = newError(KindNotFound, "RoomNotFound", "room does not exist")
	ErrNotInRoom    = newError(KindNotFound, "NotInRoom", "you are not playing in this room")

	ErrNotHost      = newError(KindAuthorization, "NotHost", "only the host can do that")
	ErrInvalidToken = newError(KindAuthorization, "InvalidToken", "session token is not valid for this seat")

	ErrAlreadyJoined = newError(KindConflict, "AlreadyJoined", "this connection is already in the room")
	ErrRoundActive   = newError(KindConflict, "RoundActive", "a round is already in progress")

	ErrRoomFull = newError(KindCapacity, "RoomFull", "room is full")

	ErrRateLimited = newError(KindRateLimit, "RateLimited", "too many requests, slow down")

	ErrCodeExhausted = newError(KindInternal, "CodeExhausted", "could not allocate a room code")
)

// KindOf returns the kind of err, or KindInternal for errors that did not
// come from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
