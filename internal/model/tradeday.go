package model

import (
	"strings"
	"time"
)

// ParseYYMMDD reads a trade date from its digits. Eight digits drop the century.
func ParseYYMMDD(value string) (time.Time, bool) {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 8 {
		digits = digits[2:]
	}
	if len(digits) != 6 {
		return time.Time{}, false
	}
	t, err := time.Parse("060102", digits)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(2000+t.Year()%100, t.Month(), t.Day(), 0, 0, 0, 0, time.Local), true
}

// NormalizeYYMMDD returns the six-digit form, or the trimmed input when it is not a date.
func NormalizeYYMMDD(value string) string {
	value = strings.TrimSpace(value)
	if t, ok := ParseYYMMDD(value); ok {
		return t.Format("060102")
	}
	return value
}

// TradingDaysSince counts weekdays after the given YYMMDD date up to and including today.
func TradingDaysSince(value string, now time.Time) int {
	last, ok := ParseYYMMDD(value)
	if !ok {
		return 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	days := 0
	for d := last.AddDate(0, 0, 1); !d.After(today); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}
