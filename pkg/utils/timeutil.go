package utils

import (
	"time"
)

// TPE is the Asia/Taipei location (UTC+8), the time zone MoneyDJ publishes in.
var TPE *time.Location

func init() {
	var err error
	TPE, err = time.LoadLocation("Asia/Taipei")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		TPE = time.FixedZone("CST", 8*60*60)
	}
}

// NowTaipei returns the current time in Taipei.
func NowTaipei() time.Time {
	return time.Now().In(TPE)
}

// ToTaipei converts a time.Time to Taipei time.
func ToTaipei(t time.Time) time.Time {
	return t.In(TPE)
}

// FormatTimestamp renders t in Taipei time for text output.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(TPE).Format("2006-01-02 15:04:05 MST")
}
