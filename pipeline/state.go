package pipeline

// State is a stage of one analysis run.
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateResolving
	StateExplaining
	StateDone
	StateError
)

var stateNames = [...]string{"idle", "extracting", "resolving", "explaining", "done", "error"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}
