package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeUsername приводит username/nickname к NFKC и нижнему регистру.
func NormalizeUsername(s string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(s)))
}

// NormalizeEmail приводит к нижнему регистру только доменную часть адреса.
func NormalizeEmail(s string) string {
	s = strings.TrimSpace(s)
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return s
	}
	return s[:at] + "@" + strings.ToLower(s[at+1:])
}
