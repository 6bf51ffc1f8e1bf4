package models

import (
	"regexp"
	"time"
)

const DateLayout = "2006-01-02"

var (
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// IsClockTime reports whether s is a 24-hour HH:mm time.
func IsClockTime(s string) bool {
	return clockPattern.MatchString(s)
}

// ParseDate parses a canonical YYYY-MM-DD calendar date. Dates such as
// 2026-02-30 are rejected.
func ParseDate(s string) (time.Time, bool) {
	if !datePattern.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
