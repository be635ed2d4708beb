package messaging

// GroupName derives the canonical group name for a two-party conversation.
// The ordinally smaller username goes first, so both parties compute the
// identical name no matter who connected first.
func GroupName(caller, other string) string {
	if caller < other {
		return caller + "-" + other
	}
	return other + "-" + caller
}
