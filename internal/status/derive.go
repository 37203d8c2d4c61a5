package status

import (
	"fmt"
	"strings"

	"statuswatch/internal/classify"
	"statuswatch/internal/model"
)

// attending reports whether the viewer is expected in the meeting. Only a
// declined or unrecognized response disqualifies it.
func attending(response string) bool {
	switch response {
	case model.ResponseAccepted, model.ResponseTentative, model.ResponseNeedsAction:
		return true
	}
	return false
}

// Derive applies the precedence policy over the signals and returns the
// status to publish, or ok=false when the calendar gives no opinion.
//
// Precedence, first applicable rule wins:
//  1. leave
//  2. meeting (a declined meeting falls through to the location rule)
//  3. working location
func Derive(sig classify.Signals) (model.UserStatus, bool) {
	if sig.HasLeave {
		return leaveStatus(sig.Leave), true
	}
	if sig.HasMeeting {
		if st, ok := meetingStatus(sig.Meeting); ok {
			return st, true
		}
	}
	return locationStatus(sig.Location, sig.HasLocation)
}

func leaveStatus(rec model.LeaveRecord) model.UserStatus {
	st := leaveCatalogue[rec.Kind]
	if rec.Kind == model.LeaveOutOfOffice {
		// The original event summary carries the useful detail
		// ("Out of office - dentist"); keep it as the status text.
		st.Text = rec.Summary
	}
	return st
}

func meetingStatus(m model.Meeting) (model.UserStatus, bool) {
	if strings.Contains(strings.ToLower(m.Title), "lunch") {
		return lunch, true
	}
	if !attending(m.Response) {
		return model.UserStatus{}, false
	}
	st := meeting
	st.Text = fmt.Sprintf(st.Text, m.Title)
	return st, true
}

func locationStatus(loc model.WorkingLocation, ok bool) (model.UserStatus, bool) {
	if !ok {
		return model.UserStatus{}, false
	}

	var st model.UserStatus
	switch loc.Kind {
	case model.LocationHome, model.LocationHomeOffice:
		st = remote
	case model.LocationOffice:
		st = inOffice
	default:
		return model.UserStatus{}, false
	}

	if loc.HasUntil() {
		st.Text = fmt.Sprintf("%s (until %s)", st.Text, loc.Until.Format("15:04"))
	}
	return st, true
}
