// Package classify turns today's raw calendar events into the three
// signals that drive status derivation: the current meeting, the active
// working location and the active leave event.
//
// All functions are pure over (events, now) and expect the event list to
// be pre-sorted by start time ascending, limited to events starting today.
package classify

import (
	"strings"
	"time"

	"statuswatch/internal/model"
)

// Signals bundles the per-tick derived facts with explicit presence flags.
type Signals struct {
	Meeting    model.Meeting
	HasMeeting bool

	Location    model.WorkingLocation
	HasLocation bool

	Leave    model.LeaveRecord
	HasLeave bool
}

// Collect runs all three classifiers over the event list.
func Collect(events []model.Event, now time.Time) Signals {
	var sig Signals
	sig.Meeting, sig.HasMeeting = CurrentMeeting(events, now)
	sig.Location, sig.HasLocation = CurrentLocation(events, now)
	sig.Leave, sig.HasLeave = CurrentLeave(events, now)
	return sig
}

// CurrentMeeting returns the first timed event whose interval contains now.
// Working-location markers and whole-day events are never meetings.
// Private and confidential events are reported with the title "Busy".
func CurrentMeeting(events []model.Event, now time.Time) (model.Meeting, bool) {
	for _, ev := range events {
		if ev.Location != "" {
			continue
		}
		if !ev.Timed() {
			continue
		}
		if !contains(ev.Start, ev.End, now) {
			continue
		}

		title := ev.Summary
		switch ev.Visibility {
		case "private", "confidential":
			title = "Busy"
		}
		if title == "" {
			title = "Untitled Meeting"
		}

		response := ev.Response
		if response == "" {
			response = model.ResponseAccepted
		}

		return model.Meeting{
			Title:    title,
			Start:    ev.Start,
			End:      ev.End,
			JoinURL:  ev.JoinURL,
			Response: response,
		}, true
	}
	return model.Meeting{}, false
}

// CurrentLocation returns the first working-location marker active now.
// Timed markers must contain now and carry their end time as Until;
// whole-day markers must cover today and have no Until.
func CurrentLocation(events []model.Event, now time.Time) (model.WorkingLocation, bool) {
	for _, ev := range events {
		if ev.Location == "" {
			continue
		}
		if ev.Timed() {
			if contains(ev.Start, ev.End, now) {
				return model.WorkingLocation{Kind: ev.Location, Until: ev.End}, true
			}
			continue
		}
		if coversToday(ev.Start, ev.End, now) {
			return model.WorkingLocation{Kind: ev.Location}, true
		}
	}
	return model.WorkingLocation{}, false
}

// leaveKeywords are matched, in order, as prefixes of the lowercased
// event summary. First match wins.
var leaveKeywords = []struct {
	prefix string
	kind   model.LeaveKind
}{
	{"vacation", model.LeaveVacation},
	{"out of office", model.LeaveOutOfOffice},
	{"day off", model.LeaveDayOff},
	{"workation", model.LeaveWorkation},
	{"sick", model.LeaveSick},
}

func classifyLeave(summary string) (model.LeaveKind, bool) {
	lower := strings.ToLower(summary)
	for _, kw := range leaveKeywords {
		if strings.HasPrefix(lower, kw.prefix) {
			return kw.kind, true
		}
	}
	return "", false
}

// CurrentLeave returns the active leave event. Whole-day leave events
// covering today always outrank timed ones containing now, regardless of
// scan order: the first whole-day match is returned immediately, while the
// first timed match is only used when no whole-day match exists.
func CurrentLeave(events []model.Event, now time.Time) (model.LeaveRecord, bool) {
	var timed model.LeaveRecord
	var haveTimed bool

	for _, ev := range events {
		kind, ok := classifyLeave(ev.Summary)
		if !ok {
			continue
		}

		if ev.Timed() {
			if !haveTimed && contains(ev.Start, ev.End, now) {
				timed = model.LeaveRecord{Kind: kind, Summary: ev.Summary}
				haveTimed = true
			}
			continue
		}
		if coversToday(ev.Start, ev.End, now) {
			return model.LeaveRecord{Kind: kind, Summary: ev.Summary}, true
		}
	}

	if haveTimed {
		return timed, true
	}
	return model.LeaveRecord{}, false
}

func contains(start, end, now time.Time) bool {
	return !now.Before(start) && !now.After(end)
}

// coversToday reports whether now's UTC date falls in [start date, end date).
func coversToday(start, end, now time.Time) bool {
	today := dateOf(now)
	return !today.Before(dateOf(start)) && today.Before(dateOf(end))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
