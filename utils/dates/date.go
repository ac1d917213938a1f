package dates

import (
	"strconv"
	"strings"
	"time"
)

const (
	DateFormat = "2006-01-02"
)

var publishedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	DateFormat,
}

// ParsePublished parses an upstream timestamp. Unix seconds and milliseconds are
// accepted; anything unparseable yields fallback.
func ParsePublished(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return FromUnix(n)
	}

	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return fallback
}

// FromUnix converts a unix timestamp in seconds or milliseconds.
func FromUnix(n int64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}

// ParseDateParam parses a query parameter given as a day or a full RFC3339 timestamp.
// endOfDay moves a bare day to its last instant so that ranges are inclusive.
func ParseDateParam(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	day, err := StringToDate(raw, DateFormat)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}

func StringToDate(from string, dateFormat string) (time.Time, error) {
	return time.Parse(dateFormat, from)
}
