package container

// State is the authoritative lifecycle state of one container
type State int

// Lifecycle states
const (
	Created State = iota + 1
	Running
	Paused
	Stopped
	Destroyed
)

var stateString = [...]string{
	"invalid",
	"created",
	"running",
	"paused",
	"stopped",
	"destroyed",
}

func (s State) String() string {
	if int(s) > 0 && int(s) < len(stateString) {
		return stateString[s]
	}
	return stateString[0]
}

// transition graph: every reachable successor per state. Destroy is legal
// from any live state, so Destroyed appears everywhere.
var validTransition = map[State][]State{
	Created:   {Running, Destroyed},
	Running:   {Paused, Stopped, Destroyed},
	Paused:    {Running, Stopped, Destroyed},
	Stopped:   {Destroyed},
	Destroyed: nil,
}

func canTransition(from, to State) bool {
	for _, s := range validTransition[from] {
		if s == to {
			return true
		}
	}
	return false
}

func parseState(s string) (State, bool) {
	for i := int(Created); i < len(stateString); i++ {
		if stateString[i] == s {
			return State(i), true
		}
	}
	return 0, false
}
