package probe

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"02-January-2006",
	"02.01.2006",
	"2006/01/02",
	"2006.01.02",
	"20060102",
}

// parseDate accepts the date spellings registries commonly use. When the
// whole value does not parse, the first whitespace-separated field is tried.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := tryLayouts(s); ok {
		return t, true
	}
	if i := strings.IndexAny(s, " \t"); i > 0 {
		return tryLayouts(s[:i])
	}
	return time.Time{}, false
}

func tryLayouts(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
