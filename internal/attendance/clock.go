package attendance

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a wall-clock time of day expressed in minutes after midnight.
type Clock int

const minutesPerDay = 24 * 60

// ParseClock parses an "HH:MM" (or "HH:MM:SS") string. Seconds are discarded.
func ParseClock(raw string) (Clock, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q, expected HH:MM", raw)
	}
	hour, ok := twoDigits(parts[0])
	if !ok || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, ok := twoDigits(parts[1])
	if !ok || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	if len(parts) == 3 {
		if sec, ok := twoDigits(parts[2]); !ok || sec > 59 {
			return 0, fmt.Errorf("invalid second in %q", raw)
		}
	}
	return Clock(hour*60 + minute), nil
}

// twoDigits reads exactly two ASCII digits; signs and spaces are rejected.
func twoDigits(part string) (int, bool) {
	if len(part) != 2 || part[0] < '0' || part[0] > '9' || part[1] < '0' || part[1] > '9' {
		return 0, false
	}
	return int(part[0]-'0')*10 + int(part[1]-'0'), true
}

// MustParseClock is ParseClock for constants; it panics on malformed input.
func MustParseClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockOf returns the wall-clock time of day of t, ignoring its location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// Hour returns the hour component.
func (c Clock) Hour() int { return int(c) / 60 }

// Minute returns the minute component.
func (c Clock) Minute() int { return int(c) % 60 }

// Valid reports whether c falls inside a single day.
func (c Clock) Valid() bool { return c >= 0 && c < minutesPerDay }

// String formats the clock as zero-padded "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
