package parse

import (
	"strings"
	"time"
)

// Accepted layouts, tried in order. Day-first wins for ambiguous input.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"01-02-2006",
}

// Date parses raw against the accepted layouts and returns fallback when raw
// is empty or matches none of them.
func Date(raw string, fallback time.Time) time.Time {
	d, err := DateStrict(raw, fallback)
	if err != nil {
		return fallback
	}
	return d
}

// DateStrict returns fallback only for empty input.
func DateStrict(raw string, fallback time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallback, nil
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return fallback, ErrUnparseable
}

// Today truncates now to a calendar date.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
