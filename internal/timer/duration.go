package timer

import (
	"strconv"
	"strings"
	"time"
)

// ParseExamTime converts a human-readable duration string ("2 hours",
// "4.5 hours", "90 minutes") into a duration. The second return value is
// false when the string cannot be parsed; callers must treat that as "no
// timer", never as an error.
func ParseExamTime(raw string) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	// Accept Go-native forms ("1h30m") as a convenience.
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d, true
	}

	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) != 2 {
		return 0, false
	}

	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || value <= 0 {
		return 0, false
	}

	unit := fields[1]
	switch {
	case strings.HasPrefix(unit, "hour"), strings.HasPrefix(unit, "hr"):
		return time.Duration(value * float64(time.Hour)), true
	case strings.HasPrefix(unit, "min"):
		return time.Duration(value * float64(time.Minute)), true
	case strings.HasPrefix(unit, "sec"):
		return time.Duration(value * float64(time.Second)), true
	}
	return 0, false
}
