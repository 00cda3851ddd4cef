package mqtt

import "strings"

// defaultTopicPrefix is used when the config leaves topic_prefix empty.
const defaultTopicPrefix = "deckbridge"

// Topics builds the topic tree for the state mirror.
//
// Layout:
//
//	<prefix>/state/<field>      retained, one topic per normalized state field
//	<prefix>/system/status      retained, online/offline announcements (incl. LWT)
type Topics struct {
	// Prefix overrides the default "deckbridge" root. Trailing slashes
	// are trimmed.
	Prefix string
}

func (t Topics) root() string {
	p := strings.TrimRight(t.Prefix, "/")
	if p == "" {
		return defaultTopicPrefix
	}
	return p
}

// State returns the retained state topic for a normalized field,
// e.g. "deckbridge/state/timecode".
func (t Topics) State(field string) string {
	return t.root() + "/state/" + field
}

// SystemStatus returns the online/offline status topic.
func (t Topics) SystemStatus() string {
	return t.root() + "/system/status"
}
