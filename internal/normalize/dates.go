package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISOLayout is the UTC timestamp format used for Article.PublishedAt.
const ISOLayout = "2006-01-02T15:04:05Z"

var relativeDateRe = regexp.MustCompile(`(?i)(\d+)\s+(minute|hour|day|week|month|year)s?\s+ago`)

// absoluteLayouts are tried in order after the relative form.
var absoluteLayouts = []string{
	"Jan 2, 2006",
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
}

var unitDurations = map[string]time.Duration{
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
	"month":  30 * 24 * time.Hour,
	"year":   365 * 24 * time.Hour,
}

// ParseProviderDate normalizes a provider date such as "2 hours ago" or "Aug 14, 2025"
// to a UTC ISO-8601 string. Relative dates are resolved against now.
// Returns nil when the date is empty or unparseable.
func ParseProviderDate(s string, now time.Time) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if m := relativeDateRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		unit := unitDurations[strings.ToLower(m[2])]
		if int64(n) > math.MaxInt64/int64(unit) {
			return nil
		}
		iso := FormatISO(now.Add(-time.Duration(n) * unit))
		return &iso
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			iso := FormatISO(t)
			return &iso
		}
	}
	return nil
}

// FormatISO formats t in UTC with second precision and a trailing Z.
func FormatISO(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(ISOLayout)
}

// ParseISO parses an Article.PublishedAt value. It accepts any RFC3339 offset.
func ParseISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
