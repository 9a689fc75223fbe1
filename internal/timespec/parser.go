package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var units = map[byte]time.Duration{
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseDuration parses a human-friendly duration: an integer followed by
// m (minutes), h (hours), d (days) or w (weeks), e.g. "24h", "7d", "2w".
// Compound Go durations such as "1h30m" are accepted too.
func ParseDuration(spec string) (time.Duration, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("empty duration")
	}

	unit, ok := units[spec[len(spec)-1]]
	if ok {
		n, err := strconv.Atoi(spec[:len(spec)-1])
		if err == nil {
			if n < 0 {
				return 0, fmt.Errorf("negative duration: %s", spec)
			}
			return time.Duration(n) * unit, nil
		}
	}

	if d, err := time.ParseDuration(spec); err == nil && d >= 0 {
		return d, nil
	}

	return 0, fmt.Errorf("invalid duration: %s (use m, h, d or w, e.g. '24h' or '7d')", spec)
}

// Parse parses a time specification relative to now.
// Supports two formats:
//   - Durations: "30m", "24h", "7d", "2w", "1h30m" (meaning that long ago)
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
func Parse(spec string, now time.Time) (time.Time, error) {
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t, nil
	}

	d, err := ParseDuration(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time specification: %s (use a duration like '7d' or RFC3339 like '2025-10-29T13:00:00Z')", spec)
	}
	return now.Add(-d), nil
}
