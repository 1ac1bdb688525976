package parser

import (
	"time"

	"github.com/rs/zerolog/log"
)

// DateLayouts is the fixed, ordered list of layouts tried when parsing a
// payload date. First match wins. The order is load-bearing: "01/02/2024"
// is inherently ambiguous between day/month and month/day, and the list
// resolves it in favor of day/month because the day-first layouts come
// first. Do not reorder without checking every source that feeds this.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006.01.02",
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"20060102",
	"01/02/2006",
	"01-02-2006",
}

// ParseDate parses s against DateLayouts in order. The second return value is
// false when s is empty or matches no layout; an unparseable non-empty value
// additionally logs a warning because it usually means a portal changed its
// export format.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	log.Warn().Str("value", s).Msg("Date matched no known layout")
	return time.Time{}, false
}

// ParseDatePtr is ParseDate adapted to the candidate-record shape, which
// carries nil for absent dates.
func ParseDatePtr(s string) *time.Time {
	t, ok := ParseDate(s)
	if !ok {
		return nil
	}
	return &t
}
