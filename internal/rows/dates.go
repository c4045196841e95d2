package rows

import (
	"regexp"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

var dateLayouts = []string{
	"2 Jan 2006",
	"2 January 2006",
	"2 Jan 06",
	"2 January 06",
	"2006-01-02",
	"2006/01/02",
}

var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

var (
	coveragePattern   = regexp.MustCompile(`(?i)(?:reporting|coverage)\s+period:?([^\n]+)`)
	reportDatePattern = regexp.MustCompile(`(?i)report\s+date[:\s]+([0-9a-zA-Z \t,/-]+)`)
	rangeSeparator    = regexp.MustCompile(`[\x{2013}-]`)
	spacedSeparator   = regexp.MustCompile(`\s[\x{2013}-]\s|\x{2013}`)
	ordinalSuffix     = regexp.MustCompile(`(\d)(?:st|nd|rd|th)`)
)

// Dates is the as-of and publication date pair for a document, both
// formatted as YYYY-MM-DD.
type Dates struct {
	AsOf        string
	Publication string
}

// PickDates finds the as-of date for a document. The end of a reporting or
// coverage period wins, then an explicit report date, then the created or
// changed timestamps, then today in UTC.
func PickDates(text, created, changed string, now time.Time) Dates {
	if m := coveragePattern.FindStringSubmatch(text); m != nil {
		if d, ok := coverageEnd(m[1]); ok {
			s := d.Format(isoDate)
			return Dates{AsOf: s, Publication: s}
		}
	}
	if m := reportDatePattern.FindStringSubmatch(text); m != nil {
		if d, ok := ParseDate(m[1]); ok {
			s := d.Format(isoDate)
			return Dates{AsOf: s, Publication: s}
		}
	}

	fallback := created
	if fallback == "" {
		fallback = changed
	}
	if fallback != "" {
		pub := changed
		if pub == "" {
			pub = fallback
		}
		return Dates{AsOf: datePart(fallback), Publication: datePart(pub)}
	}

	today := now.UTC().Format(isoDate)
	return Dates{AsOf: today, Publication: today}
}

// coverageEnd parses the end of a coverage range. A spaced or en-dash
// separator is tried first so ISO dates keep their hyphens.
func coverageEnd(period string) (time.Time, bool) {
	spaced := spacedSeparator.Split(period, -1)
	if d, ok := ParseDate(spaced[len(spaced)-1]); ok {
		return d, true
	}
	parts := rangeSeparator.Split(period, -1)
	return ParseDate(parts[len(parts)-1])
}

// ParseDate parses a free-text date token such as "31 Aug 2025",
// "1st September 2024" or "2025-08-31".
func ParseDate(token string) (time.Time, bool) {
	s := strings.NewReplacer("\u00a0", " ", "\u202f", " ", "\u2013", "-").Replace(token)
	s = strings.Join(strings.Fields(s), " ")
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	trimmed := strings.TrimSuffix(s, "Z")
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MonthStart returns the first day of the month of a YYYY-MM-DD date, or ""
// when the date does not parse.
func MonthStart(date string) string {
	t, err := time.Parse(isoDate, datePart(date))
	if err != nil {
		return ""
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Format(isoDate)
}

func datePart(ts string) string {
	date, _, _ := strings.Cut(ts, "T")
	return date
}
