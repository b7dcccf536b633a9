package database

import (
	"strconv"
	"time"
)

// ToInt coerces a backend value to int. Drivers disagree on numeric types:
// lib/pq returns int64, go-sqlite3 may return int64 or text depending on
// column affinity.
func ToInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	case []byte:
		i, _ := strconv.Atoi(string(n))
		return i
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}

// ToString coerces a backend value to string; nil becomes "".
func ToString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format("2006-01-02 15:04:05")
	case nil:
		return ""
	default:
		return ""
	}
}

// timestampLayouts are tried in order when a timestamp arrives as text.
// SQLite stores ISO-8601 text, PostgreSQL values normally arrive as
// time.Time, and rows that crossed a backend boundary may carry either,
// with or without a zone suffix.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a backend timestamp value tolerantly. The false
// return means "no information": the caller skips that side rather than
// guessing.
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	default:
		return time.Time{}, false
	}
}

func parseTimeString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateOnly normalizes a backend date value to "2006-01-02", or "" when
// the value is absent or unparseable.
func DateOnly(v any) string {
	t, ok := ParseTimestamp(v)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}
