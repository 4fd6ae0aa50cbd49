package utils

import (
	"strconv"
	"strings"
)

// FormatThousands formats a number with comma thousands separators and at
// most the given number of decimals, trimming trailing zeros:
// 1234567.5 -> "1,234,567.5".
func FormatThousands(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if sign == "-" && b.String() == "0" && frac == "" {
		sign = ""
	}
	return sign + b.String() + frac
}

// FormatPct renders a percent-unit value: 12.34 -> "12.34%". A nil value is "-".
func FormatPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + "%"
}

// FormatOptional renders an optional number with thousands separators, "-"
// when absent.
func FormatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return FormatThousands(*v, 4)
}
