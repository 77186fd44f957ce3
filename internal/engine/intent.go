package engine

// AnyNewMedia is the wildcard intent: the next transition is expected,
// whatever track it lands on. Used when the exact first track is not known
// up front, like shuffle starts.
const AnyNewMedia = "ANY_NEW"

// playIntent remembers which upcoming transition the engine itself caused,
// so it can tell its own track changes apart from organic ones like a file
// finishing or the user pressing next on the player. issuedFrom records what
// was playing when the command went out, so a wildcard intent never accepts
// a stale event for that same track.
type playIntent struct {
	mediaID    string
	issuedFrom string
	armed      bool
}

func (i *playIntent) expect(mediaID, issuedFrom string) {
	i.mediaID = mediaID
	i.issuedFrom = issuedFrom
	i.armed = true
}

func (i *playIntent) clear() {
	i.mediaID = ""
	i.issuedFrom = ""
	i.armed = false
}

// consume reports whether a transition to mediaID was the one expected. A
// match disarms the intent; a mismatch leaves it armed for the transition
// still to come.
func (i *playIntent) consume(mediaID string) bool {
	if !i.armed {
		return false
	}
	if i.mediaID == AnyNewMedia {
		if mediaID == i.issuedFrom {
			return false
		}
		i.clear()
		return true
	}
	if i.mediaID == mediaID {
		i.clear()
		return true
	}
	return false
}
