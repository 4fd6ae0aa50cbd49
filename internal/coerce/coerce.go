// Package coerce converts raw table cell text into typed values.
//
// Every function is total: malformed input yields an absent result (ok=false),
// never an error or a partially parsed value.
package coerce

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// annotation matches a parenthesized note in ASCII or full-width brackets,
// e.g. "(est.)" or "（2024/10/31）".
var annotation = regexp.MustCompile(`\([^)]*\)|（[^）]*）`)

// ParseNumber parses "1,234.56 (est.)" as 1234.56. Empty text and the dash
// placeholder "-" are absent, as is any non-numeric or non-finite remainder.
func ParseNumber(text string) (float64, bool) {
	s := annotation.ReplaceAllString(text, "")
	s = strings.ReplaceAll(s, ",", "")
	return parseFloat(s)
}

// ParsePercentage parses "12.34%" as 12.34. The value stays in percent units.
func ParsePercentage(text string) (float64, bool) {
	s := annotation.ReplaceAllString(text, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	return parseFloat(s)
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseRanking parses "142/859" into rank 142 of 859 peers. Anything other
// than exactly two non-negative integers around a single slash is absent.
func ParseRanking(text string) (rank, total int, ok bool) {
	parts := strings.Split(strings.TrimSpace(text), "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	r, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || r < 0 {
		return 0, 0, false
	}
	t, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || t < 0 {
		return 0, 0, false
	}
	return r, t, true
}

// IsRanking reports whether text should be read as a ranking rather than a
// number. Comparison tables mix both in one column.
func IsRanking(text string) bool {
	return strings.Contains(text, "/")
}

// StripAnnotation returns the trimmed text before the first occurrence of sep.
// When sep does not occur the whole trimmed text is returned.
func StripAnnotation(text, sep string) string {
	s := strings.TrimSpace(text)
	if sep == "" {
		return s
	}
	if i := strings.Index(s, sep); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
