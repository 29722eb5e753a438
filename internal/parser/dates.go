package parser

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"1/2/2006",
	"January 2,2006",
	"2006-01-02",
}

// ParseDate normalizes human date text to a UTC calendar date. The first
// layout that parses wins.
func ParseDate(text string) (time.Time, bool) {
	text = squeeze(text)
	if text == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func parseDatePtr(text string) *time.Time {
	t, ok := ParseDate(strings.TrimSpace(text))
	if !ok {
		return nil
	}
	return &t
}
