package agenda

import (
	"strings"
	"time"

	"icalmasto/internal/model"
)

const displayLayout = "Mon, 02 Jan 2006 15:04"

// Display renders an event's start time for humans, converted into
// loc (nil means the zone chosen at parse time is kept). The second
// return is false when the event has no start, so the caller can
// substitute a placeholder. Display never fails.
func Display(ev model.Event, loc *time.Location) (string, bool) {
	if ev.Start == nil {
		return "", false
	}
	t := *ev.Start
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(displayLayout), true
}

// ComposeStatus renders a list of upcoming events into the status text
// handed to the publishing step. An empty list is a valid state, not
// an error, and renders as an explicit no-events message.
func ComposeStatus(events []model.Event, loc *time.Location) string {
	if len(events) == 0 {
		return "No upcoming events."
	}

	var b strings.Builder
	if len(events) == 1 {
		b.WriteString("Upcoming event:\n")
	} else {
		b.WriteString("Upcoming events:\n")
	}

	for _, ev := range events {
		when, ok := Display(ev, loc)
		if !ok {
			when = "(time unknown)"
		}

		summary := "(untitled)"
		if ev.Summary != nil && *ev.Summary != "" {
			summary = *ev.Summary
		}

		b.WriteString("\n• ")
		b.WriteString(when)
		b.WriteString(" — ")
		b.WriteString(summary)
		if ev.Location != nil && *ev.Location != "" {
			b.WriteString(" @ ")
			b.WriteString(*ev.Location)
		}
		if ev.URL != nil && *ev.URL != "" {
			b.WriteString("\n  ")
			b.WriteString(*ev.URL)
		}
	}

	return b.String()
}
