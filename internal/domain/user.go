package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxUsernameLen matches the users.username column.
const MaxUsernameLen = 120

// User is an account. Its ID is the owner id stamped on every task the user creates.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizeUsername trims s and reports whether the result is a usable username.
func NormalizeUsername(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > MaxUsernameLen {
		return s, false
	}
	return s, true
}
