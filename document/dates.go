package document

import (
	"fmt"
	"strings"
	"time"
)

// timeNow is replaced in tests.
var timeNow = time.Now

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// FormatDate formats an ISO date as dd/mm/yyyy. An empty value prints as
// N/A and a value that does not parse is returned unchanged.
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return notAvailable
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return s
}

// FormatLongDate formats t as "2 January 2006".
func FormatLongDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), t.Month(), t.Year())
}
