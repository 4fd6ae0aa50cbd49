// Package utils provides common helpers for etfdj: ticker normalization,
// Taipei time, and number formatting for text output.
package utils

import (
	"regexp"
	"strings"
)

// TaiwanSuffix marks a Taiwan-listed ETF id on MoneyDJ, e.g. "0050.TW".
const TaiwanSuffix = ".TW"

// twCode matches a bare Taiwan ETF code such as "0050", "00878" or "00679B".
var twCode = regexp.MustCompile(`^[0-9]{4,6}[A-Z]?$`)

// NormalizeTicker normalizes a user-input ticker to the MoneyDJ etfid form.
// It uppercases, trims whitespace and a leading "$", and appends ".TW" to bare
// Taiwan codes. Anything else is returned as-is; an unknown ticker is not an
// error here.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))

	// Remove $ prefix if present (common in chat)
	ticker = strings.TrimPrefix(ticker, "$")

	if twCode.MatchString(ticker) {
		return ticker + TaiwanSuffix
	}
	return ticker
}

// IsTaiwanListed reports whether the ticker refers to a Taiwan-listed ETF.
func IsTaiwanListed(ticker string) bool {
	return strings.HasSuffix(NormalizeTicker(ticker), TaiwanSuffix)
}

// BareSymbol strips the market suffix: "0050.TW" becomes "0050".
func BareSymbol(ticker string) string {
	return strings.TrimSuffix(NormalizeTicker(ticker), TaiwanSuffix)
}
