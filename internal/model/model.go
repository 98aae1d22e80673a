package model

import "time"

// Event is one calendar entry as produced by the ICS parser.
//
// All fields except UID are optional; absence is represented by a nil
// pointer rather than a sentinel value, and every consumer is expected
// to handle the nil case. An Event whose Start is nil (missing or
// unparseable DTSTART) is kept in the Calendar but is never eligible
// for upcoming-event selection.
type Event struct {
	UID string

	Summary  *string
	Location *string
	URL      *string

	// Start and End carry the interpretation chosen at parse time:
	// UTC instants keep time.UTC, TZID-qualified times keep the
	// resolved zone, and floating times keep the display location.
	Start *time.Time
	End   *time.Time
}

// Calendar is the ordered sequence of events from one parse. It is
// append-only during parsing and read-only afterwards, so it may be
// queried concurrently with different reference times without
// re-parsing.
type Calendar struct {
	Events []Event
}
