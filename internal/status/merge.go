package status

import (
	"strings"

	"statuswatch/internal/model"
)

// splitRemote separates the remote status text into the user-authored
// prefix and the auto segment at the first separator occurrence. Text
// without a separator is entirely user-owned.
func splitRemote(text, sep string) (prefix string, hasAuto bool) {
	before, _, found := strings.Cut(text, sep)
	return strings.TrimSpace(before), found
}

// compose builds the published text from the user prefix and the derived
// auto text. An empty prefix still gets a leading separator so the auto
// segment stays recognizable on the next tick.
func compose(prefix, auto, sep string) string {
	if prefix == "" {
		return sep + " " + auto
	}
	return prefix + " " + sep + " " + auto
}

// Merge decides whether a status write is needed and what it should be.
//
// The user prefix is never altered. When derivedOK is false the auto
// segment is cleared if present (keeping the remote emoji fields, which
// belong to the user's manual status) and nothing is written otherwise.
// When the composed text equals the remote text byte-for-byte, no write
// happens: repeated ticks with unchanged state never re-publish.
func Merge(remote model.UserStatus, derived model.UserStatus, derivedOK bool, sep string) (model.UserStatus, bool) {
	prefix, hasAuto := splitRemote(remote.Text, sep)

	if !derivedOK {
		if !hasAuto {
			return model.UserStatus{}, false
		}
		cleared := remote
		cleared.Text = prefix
		if cleared.ReactionType == "" {
			cleared.ReactionType = "unicode_emoji"
		}
		return cleared, true
	}

	final := compose(prefix, derived.Text, sep)
	if final == remote.Text {
		return model.UserStatus{}, false
	}

	return model.UserStatus{
		Text:         final,
		EmojiName:    derived.EmojiName,
		EmojiCode:    derived.EmojiCode,
		ReactionType: derived.ReactionType,
	}, true
}
