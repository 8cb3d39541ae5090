package formstate

import (
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

// Source payloads carry dates in a handful of shapes; only the calendar day is kept.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.RFC3339Nano,
	time.DateTime,
	"2006-01-02T15:04:05",
	"01/02/2006",
}

// ParseDate turns v into a calendar date. It never shifts the day across time
// zones: timestamps keep the date as written in their own offset.
// The second return value is false for empty, invalid or non-string input.
func ParseDate(v any) (civil.Date, bool) {
	switch t := v.(type) {
	case civil.Date:
		return t, t.IsValid()
	case *civil.Date:
		if t == nil {
			return civil.Date{}, false
		}
		return *t, t.IsValid()
	case time.Time:
		if t.IsZero() {
			return civil.Date{}, false
		}
		return civil.DateOf(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return civil.Date{}, false
		}
		for _, layout := range dateLayouts {
			parsed, err := time.Parse(layout, s)
			if err != nil {
				continue
			}
			d := civil.DateOf(parsed)
			if d.IsValid() {
				return d, true
			}
		}
		return civil.Date{}, false
	default:
		return civil.Date{}, false
	}
}
