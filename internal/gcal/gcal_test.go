package gcal

import (
	"testing"
	"time"

	"statuswatch/internal/model"
)

func TestMapEventTimed(t *testing.T) {
	item := eventItem{
		Summary: "Sprint Planning",
		Start:   eventTime{DateTime: "2026-03-10T10:00:00Z"},
		End:     eventTime{DateTime: "2026-03-10T11:00:00Z"},
		Attendees: []attendee{
			{Self: false, ResponseStatus: "declined"},
			{Self: true, ResponseStatus: "tentative"},
		},
		ConferenceData: &conferenceData{EntryPoints: []entryPoint{
			{EntryPointType: "phone", URI: "tel:+1555"},
			{EntryPointType: "video", URI: "https://meet.example.com/abc"},
		}},
	}

	ev, err := mapEvent(item)
	if err != nil {
		t.Fatalf("mapEvent: %v", err)
	}
	if ev.AllDay {
		t.Error("timed event mapped as whole-day")
	}
	if ev.Response != "tentative" {
		t.Errorf("Response = %q, want the self attendee's response", ev.Response)
	}
	if ev.JoinURL != "https://meet.example.com/abc" {
		t.Errorf("JoinURL = %q, want the video entry point", ev.JoinURL)
	}
}

func TestMapEventWholeDay(t *testing.T) {
	item := eventItem{
		Summary: "Vacation",
		Start:   eventTime{Date: "2026-03-10"},
		End:     eventTime{Date: "2026-03-12"},
	}

	ev, err := mapEvent(item)
	if err != nil {
		t.Fatalf("mapEvent: %v", err)
	}
	if !ev.AllDay {
		t.Error("date-only event must be whole-day")
	}
	want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if !ev.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", ev.Start, want)
	}
}

func TestMapEventWorkingLocation(t *testing.T) {
	item := eventItem{
		Start:                     eventTime{DateTime: "2026-03-10T08:00:00Z"},
		End:                       eventTime{DateTime: "2026-03-10T18:00:00Z"},
		WorkingLocationProperties: &workingLocation{Type: "homeOffice"},
	}

	ev, err := mapEvent(item)
	if err != nil {
		t.Fatalf("mapEvent: %v", err)
	}
	if ev.Location != model.LocationHomeOffice {
		t.Errorf("Location = %q, want %q", ev.Location, model.LocationHomeOffice)
	}
}

func TestMapEventMissingBoundary(t *testing.T) {
	if _, err := mapEvent(eventItem{Summary: "broken"}); err == nil {
		t.Error("expected error for event with no boundaries")
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	b := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)
	if !sameDay(a, b) {
		t.Error("same UTC date must match")
	}
	if sameDay(a, b.AddDate(0, 0, 1)) {
		t.Error("different dates must not match")
	}
}
