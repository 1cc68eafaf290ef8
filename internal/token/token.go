/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package token issues and checks the credentials players use to reclaim
// their seat in a room after a reconnect.
//
// A token is a compact HS256 JWT carrying only the room code and player ID.
// It has no expiry; it stays useful for exactly as long as the player it
// names still exists in the room.
package token

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

const secretSize = 32

var ErrEmptySecret = errors.New("token: signing secret must not be empty")

type claims struct {
	Room string `json:"room"`
	jwt.RegisteredClaims
}

// Signer issues and verifies seat tokens with a process-wide secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &Signer{secret: key}, nil
}

// RandomSecret returns a freshly generated secret, for when none is configured.
func RandomSecret() ([]byte, error) {
	buf := make([]byte, secretSize)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// Issue returns the token for (roomCode, playerID). The result is
// deterministic: the same pair always produces the same token.
func (s *Signer) Issue(roomCode, playerID string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Room: roomCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: playerID,
		},
	})

	return t.SignedString(s.secret)
}

// Verify reports whether tok is the token Issue would return for the pair.
func (s *Signer) Verify(roomCode, playerID, tok string) bool {
	if tok == "" {
		return false
	}

	want, err := s.Issue(roomCode, playerID)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(want), []byte(tok)) == 1
}
