package model

import "time"

// LocationKind is the working-location type as reported by the calendar
// backend (Google Calendar workingLocationProperties.type values).
type LocationKind string

const (
	LocationOffice     LocationKind = "officeLocation"
	LocationHome       LocationKind = "homeLocation"
	LocationHomeOffice LocationKind = "homeOffice"
	LocationOther      LocationKind = "otherLocation"
)

// Attendee response values for the viewing user.
const (
	ResponseAccepted    = "accepted"
	ResponseTentative   = "tentative"
	ResponseNeedsAction = "needsAction"
	ResponseDeclined    = "declined"
)

// Event is a single calendar event for today, as returned by a calendar
// source. Whole-day events carry date-only boundaries (midnight UTC) and
// AllDay=true so they can be told apart from timed events.
type Event struct {
	Summary    string
	Visibility string // "default", "public", "private", "confidential"

	AllDay bool
	Start  time.Time
	End    time.Time

	// Response is the viewing user's attendee response status; empty when
	// the user is not listed as an attendee.
	Response string

	// JoinURL is the video conferencing entry point, if any.
	JoinURL string

	// Location is set when the event is a working-location marker rather
	// than a real meeting.
	Location LocationKind
}

// Timed reports whether the event has real time-of-day boundaries.
func (e Event) Timed() bool { return !e.AllDay }

// Meeting is the currently ongoing meeting derived from today's events.
type Meeting struct {
	Title    string
	Start    time.Time
	End      time.Time
	JoinURL  string
	Response string
}

// WorkingLocation is the active working-location marker. Until is the end
// of the location window for timed markers and zero for whole-day markers.
type WorkingLocation struct {
	Kind  LocationKind
	Until time.Time
}

// HasUntil reports whether the location window has a known end boundary.
func (w WorkingLocation) HasUntil() bool { return !w.Until.IsZero() }

// LeaveKind classifies a leave/vacation event summary.
type LeaveKind string

const (
	LeaveVacation    LeaveKind = "vacation"
	LeaveOutOfOffice LeaveKind = "out-of-office"
	LeaveDayOff      LeaveKind = "day-off"
	LeaveWorkation   LeaveKind = "workation"
	LeaveSick        LeaveKind = "sick"
)

// LeaveRecord is the active leave event with its classified kind and the
// original event summary.
type LeaveRecord struct {
	Kind    LeaveKind
	Summary string
}

// UserStatus mirrors the Zulip user status payload. An all-zero value
// means "no status set".
type UserStatus struct {
	Text         string `json:"status_text"`
	EmojiName    string `json:"emoji_name"`
	EmojiCode    string `json:"emoji_code"`
	ReactionType string `json:"reaction_type"`
}

// IsZero reports whether the status is entirely unset.
func (s UserStatus) IsZero() bool {
	return s.Text == "" && s.EmojiName == "" && s.EmojiCode == "" && s.ReactionType == ""
}
