// Package sanitize normalizes untrusted strings before the relay uses them.
package sanitize

import "strings"

// Length caps for every externally supplied field
const (
	MaxRoomIDLen   = 40
	MaxNicknameLen = 24
	MaxKeyLen      = 50
	MaxTextLen     = 2000
	DefaultMaxLen  = 200
)

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// String strips every '<' and '>' from input and truncates the result to
// maxLen characters. Anything that is not a string yields "".
// FUNCTIONAL DISCOVERY: Truncation counts runes so a multi-byte nickname is
// never cut in the middle of a character
func String(input any, maxLen int) string {
	s, ok := input.(string)
	if !ok || maxLen <= 0 {
		return ""
	}

	s = angleBrackets.Replace(s)

	if len(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i]
		}
		n++
	}
	return s
}

// RoomID sanitizes a room identifier
func RoomID(input any) string { return String(input, MaxRoomIDLen) }

// Nickname sanitizes a display name
func Nickname(input any) string { return String(input, MaxNicknameLen) }

// Key sanitizes a room access key
func Key(input any) string { return String(input, MaxKeyLen) }

// Text sanitizes a chat message body
func Text(input any) string { return String(input, MaxTextLen) }
