package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The MBE control software writes "dd.MM.yyyy HH:mm:ss:SSS". Go layouts only
// accept '.' or ',' before fractional seconds, so the milliseconds after the
// last colon are parsed separately.
const secondsLayout = "02.01.2006 15:04:05"

// ParseTimestamp converts an MBE log timestamp to ms since epoch in loc
func ParseTimestamp(s string, loc *time.Location) (int64, error) {
	s = strings.TrimSpace(s)
	cut := strings.LastIndexByte(s, ':')
	if cut < 0 || cut < len(s)-4 || cut == len(s)-1 {
		return 0, fmt.Errorf("timestamp %q: expected dd.MM.yyyy HH:mm:ss:SSS", s)
	}
	ms, err := strconv.Atoi(s[cut+1:])
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: milliseconds: %w", s, err)
	}
	if ms < 0 {
		return 0, fmt.Errorf("timestamp %q: negative milliseconds", s)
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(secondsLayout, s[:cut], loc)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return t.UnixMilli() + int64(ms), nil
}

// FormatTimestamp renders ms since epoch in the MBE log format
func FormatTimestamp(ms int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	t := time.UnixMilli(ms).In(loc)
	return fmt.Sprintf("%s:%03d", t.Format(secondsLayout), t.Nanosecond()/int(time.Millisecond))
}
