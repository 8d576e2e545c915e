package module

// State is a module's lifecycle position.
type State int

const (
	StatePending State = iota
	StateReady
	StateActive
	StateBypassed
	StateRemoved
)

var stateNames = map[State]string{
	StatePending:  "pending",
	StateReady:    "ready",
	StateActive:   "active",
	StateBypassed: "bypassed",
	StateRemoved:  "removed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Ready reports whether the module's ports exist.
func (s State) Ready() bool {
	return s == StateReady || s == StateActive || s == StateBypassed
}
