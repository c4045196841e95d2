package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Clean replaces non-breaking and narrow no-break spaces with plain spaces.
func Clean(s string) string {
	return strings.NewReplacer("\u00a0", " ", "\u202f", " ").Replace(s)
}

var (
	spacedGroups = regexp.MustCompile(`^\d{1,3}(?: \d{3})+(?:\.\d+)?$`)
	lineNumber   = regexp.MustCompile(`(?i)([0-9][0-9.,\s]*(?:k|m|million)?)`)
)

// ParseNumber converts a figure such as "1.2 million", "45k", "120,000" or
// "1 200 000" to an integer, rounding halves to even. ok is false for unparsable or negative input.
func ParseNumber(token string) (int64, bool) {
	s := strings.ToLower(strings.TrimSpace(Clean(token)))
	if s == "" {
		return 0, false
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "million"):
		multiplier = 1e6
		s = strings.TrimSpace(strings.TrimSuffix(s, "million"))
	case strings.HasSuffix(s, "m"):
		multiplier = 1e6
		s = strings.TrimSpace(strings.TrimSuffix(s, "m"))
	case strings.HasSuffix(s, "k"):
		multiplier = 1e3
		s = strings.TrimSpace(strings.TrimSuffix(s, "k"))
	}

	s = strings.TrimSpace(strings.TrimSuffix(s, "+"))
	s = strings.ReplaceAll(s, ",", "")
	if spacedGroups.MatchString(s) {
		s = strings.ReplaceAll(s, " ", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	v := math.RoundToEven(f * multiplier)
	if v < 0 {
		return 0, false
	}
	return int64(v), true
}

// valueFromLine parses the first numeric token on a line.
func valueFromLine(line string) (int64, bool) {
	m := lineNumber.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return ParseNumber(m[1])
}
