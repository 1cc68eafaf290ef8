/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	CodeLength = 5

	MinRoundDuration = 15
	MaxRoundDuration = 300

	MaxChatLength = 120
)

var (
	nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9 ._-]{2,15}$`)
	codePattern     = regexp.MustCompile(`^[A-Z0-9]{5}$`)
	suffixPattern   = regexp.MustCompile(`^(.*) \((\d+)\)$`)

	drawingPrefixes = []string{
		"data:image/png;base64,",
		"data:image/jpeg;base64,",
		"data:image/webp;base64,",
	}
)

func validateNickname(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !nicknamePattern.MatchString(s) || strings.Contains(s, "  ") {
		return "", ErrInvalidNickname
	}

	return s, nil
}

// canonicalCode trims and upper-cases a client-supplied room code without
// checking its shape.
func canonicalCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func validateCode(s string) (string, error) {
	s = canonicalCode(s)
	if !codePattern.MatchString(s) {
		return "", ErrInvalidCode
	}

	return s, nil
}

func validateDuration(seconds int) error {
	if seconds < MinRoundDuration || seconds > MaxRoundDuration {
		return ErrInvalidDuration
	}

	return nil
}

func validateChat(s string) (string, error) {
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n < 1 || n > MaxChatLength {
		return "", ErrInvalidChat
	}

	return s, nil
}

// validateDrawing checks that s is a padded base64 image data URI whose
// decoded size is at most maxBytes. A non-positive maxBytes disables the
// size check.
func validateDrawing(s string, maxBytes int) error {
	var payload string
	for _, prefix := range drawingPrefixes {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			payload = rest
			break
		}
	}
	if payload == "" || len(payload)%4 != 0 {
		return ErrInvalidDrawing
	}

	if maxBytes > 0 && decodedSize(payload) > maxBytes {
		return ErrTooLarge
	}

	// Padding may only fill the last one or two positions.
	n := len(payload)
	for i := 0; i < n; i++ {
		c := payload[i]
		if c == '=' {
			if i < n-2 || payload[n-1] != '=' {
				return ErrInvalidDrawing
			}
			continue
		}
		if !isBase64(c) {
			return ErrInvalidDrawing
		}
	}

	return nil
}

// decodedSize assumes len(payload) is a multiple of four.
func decodedSize(payload string) int {
	padding := len(payload) - len(strings.TrimRight(payload, "="))

	return len(payload)/4*3 - min(padding, 2)
}

func isBase64(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '+', c == '/':
		return true
	}

	return false
}

// disambiguate returns base, or base with the smallest " (n)" suffix (n >= 2)
// that no name in taken already uses. Comparison ignores case.
func disambiguate(base string, taken []string) string {
	used := make(map[string]struct{}, len(taken))
	for _, name := range taken {
		used[strings.ToLower(name)] = struct{}{}
	}

	if _, ok := used[strings.ToLower(base)]; !ok {
		return base
	}

	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if _, ok := used[strings.ToLower(candidate)]; !ok {
			return candidate
		}
	}
}

// stripSuffix removes a trailing disambiguation suffix, so a client that
// remembers "Alex (2)" can be re-seated as "Alex".
func stripSuffix(s string) string {
	m := suffixPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s
	}
	if n, err := strconv.Atoi(m[2]); err != nil || n < 2 {
		return s
	}

	return m[1]
}
