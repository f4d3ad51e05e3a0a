// Package sanitizer normalizes user-supplied identity fields before they
// reach validation or storage. Email and username comparisons are
// case-insensitive throughout the app, so both are lowered here once.
package sanitizer

import (
	"regexp"
	"strings"
)

var (
	dotRegex        = regexp.MustCompile(`\.{2,}`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// NormalizeEmail lowers and trims the address and consolidates consecutive
// dots in the local part. Invalid shapes are returned as-is and left for the
// validator to reject.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	local := dotRegex.ReplaceAllString(parts[0], ".")
	local = strings.Trim(local, ".")

	return local + "@" + parts[1]
}

// NormalizeUsername lowers, trims and collapses inner whitespace. Usernames
// are unique case-insensitively, so the lowered form is what gets stored.
func NormalizeUsername(username string) string {
	username = strings.ToLower(strings.TrimSpace(username))
	return whitespaceRegex.ReplaceAllString(username, "")
}

// TrimText bounds free-text input such as survey comments or scan results:
// trims whitespace and truncates to max runes.
func TrimText(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max])
	}
	return s
}
