// Package agenda selects and renders the upcoming slice of a parsed
// calendar. Selection is a pure computation: the reference time is
// always an explicit parameter, the calendar is never mutated, and the
// same inputs always yield the same ordered result.
package agenda

import (
	"sort"
	"time"

	"icalmasto/internal/ics"
	"icalmasto/internal/model"
)

// Upcoming returns every event whose start is defined and at or after
// ref (inclusive boundary), ascending by start. Events with equal
// starts keep their relative order from the calendar.
func Upcoming(cal *model.Calendar, ref time.Time) []model.Event {
	if cal == nil {
		return nil
	}

	out := make([]model.Event, 0, len(cal.Events))
	for _, ev := range cal.Events {
		// An event with no parseable start is not comparable; it is
		// excluded rather than sorted arbitrarily.
		if ev.Start == nil || ev.Start.Before(ref) {
			continue
		}
		out = append(out, ev)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(*out[j].Start)
	})

	return out
}

// UpcomingLimited is Upcoming truncated to the first max entries.
// max == 0 yields an empty result; a negative max means unlimited.
func UpcomingLimited(cal *model.Calendar, ref time.Time, max int) []model.Event {
	all := Upcoming(cal, ref)
	if max < 0 || max >= len(all) {
		return all
	}
	return all[:max]
}

// ParseReference parses a reference time given in the compact
// calendar timestamp form (e.g. 20250101T090000Z), with the same
// rules as event timestamps: floating values are interpreted in loc.
func ParseReference(s string, loc *time.Location) (time.Time, error) {
	return ics.ParseDateTime(s, "", loc)
}
