package ics

import (
	"strings"
	"time"

	appLog "icalmasto/internal/log"
	"icalmasto/internal/model"
)

// Property names and component markers recognized by the parser. Any
// other property line is read and ignored.
const (
	propBegin    = "BEGIN"
	propEnd      = "END"
	propUID      = "UID"
	propSummary  = "SUMMARY"
	propLocation = "LOCATION"
	propURL      = "URL"
	propDtStart  = "DTSTART"
	propDtEnd    = "DTEND"

	componentEvent = "VEVENT"
)

// contentLine is one unfolded logical line decomposed into its
// NAME[;PARAM=VALUE...]:VALUE parts. Parameter names are upper-cased;
// the value is kept raw (text unescaping is per-property).
type contentLine struct {
	name   string
	params map[string]string
	value  string
}

// eventBuilder accumulates properties for the VEVENT currently open.
type eventBuilder struct {
	ev       model.Event
	startErr error
	sawStart bool
}

// Parse turns a raw iCalendar document into a Calendar. It never fails
// outright: an event whose DTSTART is missing or unparseable is kept
// with a nil Start (and is therefore never selectable), and broken
// BEGIN/END nesting is recovered from rather than aborting the parse.
//
// loc is the display location used to interpret floating (zone-less)
// timestamps; nil means UTC.
func Parse(text string, loc *time.Location) *model.Calendar {
	if loc == nil {
		loc = time.UTC
	}

	cal := &model.Calendar{}

	var (
		cur         *eventBuilder
		ignoreDepth int
	)

	for _, logical := range unfold(text) {
		line, ok := parseContentLine(logical)
		if !ok {
			continue
		}

		switch line.name {
		case propBegin:
			if !strings.EqualFold(line.value, componentEvent) {
				// Nested component (VALARM etc.): swallow its
				// properties so they are not attributed to the event.
				if cur != nil {
					ignoreDepth++
				}
				continue
			}
			if cur != nil {
				// BEGIN:VEVENT while one is already open; the previous
				// block was never terminated, so drop it and recover.
				appLog.Warn("ics: unterminated event block discarded", "uid", cur.ev.UID)
			}
			cur = &eventBuilder{}
			ignoreDepth = 0

		case propEnd:
			if !strings.EqualFold(line.value, componentEvent) {
				if ignoreDepth > 0 {
					ignoreDepth--
				}
				continue
			}
			if cur == nil {
				// END without a matching BEGIN; skip the marker.
				continue
			}
			cal.Events = append(cal.Events, cur.finish())
			cur = nil

		default:
			if cur == nil || ignoreDepth > 0 {
				// Calendar-level metadata or nested-component property.
				continue
			}
			cur.property(line, loc)
		}
	}

	if cur != nil {
		appLog.Warn("ics: unterminated event block at end of document discarded", "uid", cur.ev.UID)
	}

	return cal
}

func (b *eventBuilder) property(line contentLine, loc *time.Location) {
	switch line.name {
	case propUID:
		b.ev.UID = line.value
	case propSummary:
		v := unescapeText(line.value)
		b.ev.Summary = &v
	case propLocation:
		v := unescapeText(line.value)
		b.ev.Location = &v
	case propURL:
		v := line.value
		b.ev.URL = &v
	case propDtStart:
		b.sawStart = true
		t, err := ParseDateTime(line.value, line.params["TZID"], loc)
		if err != nil {
			b.startErr = err
			return
		}
		b.ev.Start = &t
	case propDtEnd:
		t, err := ParseDateTime(line.value, line.params["TZID"], loc)
		if err != nil {
			return
		}
		b.ev.End = &t
	}
}

// finish closes the builder. A missing or unparseable start is a
// per-event condition, not a parse failure: the event is returned with
// a nil Start so selection will skip it.
func (b *eventBuilder) finish() model.Event {
	if b.ev.Start == nil {
		if b.startErr != nil {
			appLog.Warn("ics: event start unparseable, excluded from selection", "uid", b.ev.UID, "err", b.startErr)
		} else if !b.sawStart {
			appLog.Warn("ics: event has no DTSTART, excluded from selection", "uid", b.ev.UID)
		}
	}
	return b.ev
}

// unfold reconstructs logical lines from the folded physical lines of
// the document. A physical line beginning with a single space or tab
// continues the previous logical line; exactly that one character is
// removed, not all leading whitespace. Both CRLF and LF line endings
// are accepted.
func unfold(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))

	for _, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') && len(out) > 0 {
			out[len(out)-1] += line[1:]
			continue
		}
		out = append(out, line)
	}

	return out
}

// parseContentLine splits an unfolded line into name, parameters and
// value. A colon inside a double-quoted parameter value (as in
// TZID="America/New_York" style or ALTREP URIs) does not terminate the
// name/parameter section. Lines with no colon are not content lines.
func parseContentLine(line string) (contentLine, bool) {
	if line == "" {
		return contentLine{}, false
	}

	sep := -1
	inQuotes := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case ':':
			if !inQuotes {
				sep = i
			}
		}
		if sep >= 0 {
			break
		}
	}
	if sep <= 0 {
		return contentLine{}, false
	}

	head := line[:sep]
	cl := contentLine{value: line[sep+1:]}

	parts := splitParams(head)
	cl.name = strings.ToUpper(parts[0])
	for _, p := range parts[1:] {
		eq := strings.IndexByte(p, '=')
		if eq <= 0 {
			continue
		}
		key := strings.ToUpper(p[:eq])
		val := strings.Trim(p[eq+1:], `"`)
		if cl.params == nil {
			cl.params = make(map[string]string)
		}
		cl.params[key] = val
	}

	return cl, true
}

// splitParams splits the pre-colon section on semicolons, honoring
// double quotes around parameter values.
func splitParams(head string) []string {
	var (
		parts    []string
		start    int
		inQuotes bool
	)
	for i := 0; i < len(head); i++ {
		switch head[i] {
		case '"':
			inQuotes = !inQuotes
		case ';':
			if !inQuotes {
				parts = append(parts, head[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, head[start:])
	return parts
}

// unescapeText decodes the TEXT escape sequences of the format:
// backslash-escaped backslashes, semicolons and commas, and \n / \N
// for embedded newlines.
func unescapeText(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		case '\\', ';', ',':
			b.WriteByte(s[i])
		default:
			// Unknown escape; keep it verbatim.
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
