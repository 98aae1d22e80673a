package ics

import (
	"errors"
	"strings"
	"time"
)

const (
	layoutUTC      = "20060102T150405Z"
	layoutDateTime = "20060102T150405"
	layoutDate     = "20060102"
)

// ParseDateTime parses an iCalendar DATE / DATE-TIME value into a
// time.Time, distinguishing the three forms the format allows:
//
//   - a trailing Z marks an absolute UTC instant;
//   - a value with a TZID parameter is a wall-clock time in that zone,
//     resolved via time.LoadLocation (an unresolvable TZID downgrades
//     the value to floating rather than discarding it);
//   - a bare value is a floating local time, interpreted in loc.
//
// Date-only values parse as midnight in the zone chosen above. loc
// must be non-nil; callers default it to time.UTC.
func ParseDateTime(value, tzid string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty time value")
	}

	if strings.HasSuffix(value, "Z") {
		return time.Parse(layoutUTC, value)
	}

	in := loc
	if tzid != "" {
		if zone, err := time.LoadLocation(tzid); err == nil {
			in = zone
		}
	}

	if strings.Contains(value, "T") {
		return time.ParseInLocation(layoutDateTime, value, in)
	}

	return time.ParseInLocation(layoutDate, value, in)
}
