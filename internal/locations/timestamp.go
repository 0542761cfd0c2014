// ABOUTME: Timestamp parsing shared by every inbound surface
// ABOUTME: Accepts RFC 3339 or a zone-less ISO-8601 date-time treated as UTC

package locations

import (
	"fmt"
	"strings"
	"time"
)

// localLayout is ISO-8601 without an offset; fractional seconds are optional when parsing.
const localLayout = "2006-01-02T15:04:05"

// ParseTimestamp parses s as RFC 3339 (any offset) or as a zone-less date-time in UTC.
// The result is always in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(localLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: want RFC 3339 or %s", s, localLayout)
}
