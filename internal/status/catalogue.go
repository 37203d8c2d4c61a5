// Package status owns the canonical status catalogue, the precedence
// rules deriving one status from the per-tick signals, and the merge that
// combines a derived status with the user's own status text.
package status

import "statuswatch/internal/model"

// The canonical catalogue. Entries are templates; every derivation works
// on a value copy, the variables below are never handed out directly.
var (
	inOffice    = model.UserStatus{Text: "In office", EmojiName: "office", ReactionType: "unicode_emoji"}
	outOfOffice = model.UserStatus{Text: "Out of office", EmojiName: "palm_tree", ReactionType: "unicode_emoji"}
	remote      = model.UserStatus{Text: "Working remotely", EmojiName: "house", ReactionType: "unicode_emoji"}
	meeting     = model.UserStatus{Text: "meet: %s", EmojiName: "calendar", ReactionType: "unicode_emoji"}
	lunch       = model.UserStatus{Text: "On a lunch break", EmojiName: "salad", ReactionType: "unicode_emoji"}
	vacation    = model.UserStatus{Text: "On vacation", EmojiName: "palm_tree", ReactionType: "unicode_emoji"}
	workation   = model.UserStatus{Text: "On a workation", EmojiName: "workation_new", ReactionType: "realm_emoji"}
	dayOff      = model.UserStatus{Text: "Day off", EmojiName: "palm_tree", ReactionType: "unicode_emoji"}
	sickLeave   = model.UserStatus{Text: "Out sick", EmojiName: "face_with_thermometer", ReactionType: "unicode_emoji"}
)

// leaveCatalogue maps leave kinds to their templates.
var leaveCatalogue = map[model.LeaveKind]model.UserStatus{
	model.LeaveVacation:    vacation,
	model.LeaveWorkation:   workation,
	model.LeaveDayOff:      dayOff,
	model.LeaveSick:        sickLeave,
	model.LeaveOutOfOffice: outOfOffice,
}
