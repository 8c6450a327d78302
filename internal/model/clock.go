package model

import "time"

const (
	ClockLayout = "15:04"
	DateLayout  = "2006-01-02"
)

// ValidClock reports whether s is a zero-padded 24-hour HH:mm time.
func ValidClock(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse(ClockLayout, s)
	return err == nil
}

// ValidDate reports whether s is a YYYY-MM-DD calendar day.
func ValidDate(s string) bool {
	if len(s) != 10 {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// LoadLocation resolves an IANA zone name. Unknown or empty names resolve to UTC.
func LoadLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func ClockIn(t time.Time, tz string) string {
	return t.In(LoadLocation(tz)).Format(ClockLayout)
}

func DateIn(t time.Time, tz string) string {
	return t.In(LoadLocation(tz)).Format(DateLayout)
}
