package session

import (
	"github.com/specialistvlad/patchbay/internal/patch"
)

// State is a point-in-time view of the session for the UI.
type State struct {
	Patch  string        `json:"patch,omitempty"`
	Input  string        `json:"input,omitempty"`
	Output string        `json:"output,omitempty"`
	Dirty  bool          `json:"dirty"`
	Chain  []patch.Stage `json:"chain"`
}

// Snapshot describes the chain tree as it is now.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Patch: s.name,
		Dirty: s.root.Dirty(),
		Chain: patch.Describe(s.root),
	}
	if s.source != nil {
		st.Input = s.source.Label()
	}
	if s.dest != nil {
		st.Output = s.dest.Label()
	}
	return st
}
