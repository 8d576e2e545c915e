package control

import (
	"github.com/specialistvlad/patchbay/internal/session"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Event names accepted from clients.
const (
	EventAdd       = "module:add"
	EventRemove    = "module:remove"
	EventMove      = "module:move"
	EventReorder   = "chain:reorder"
	EventBypass    = "module:bypass"
	EventParam     = "module:param"
	EventCrossfade = "splitter:crossfade"
	EventDevice    = "device:load"
	EventInput     = "input:select"
	EventOutput    = "output:select"
	EventState     = "patch:state"
)

// EventError is broadcast for substrate failures.
const EventError = "patch:error"

// Ack answers a single event.
type Ack struct {
	OK       bool           `json:"ok"`
	ID       string         `json:"id,omitempty"`
	Bypassed *bool          `json:"bypassed,omitempty"`
	Error    string         `json:"error,omitempty"`
	State    *session.State `json:"state,omitempty"`
}

// ErrorEvent is the payload of EventError.
type ErrorEvent struct {
	Error string `json:"error"`
}

type addRequest struct {
	Chain    string                             `json:"chain"`
	Kind     string                             `json:"kind"`
	Name     string                             `json:"name"`
	Position *int                               `json:"position"`
	Params   map[string]ctyjson.SimpleJSONValue `json:"params"`
}

type idRequest struct {
	ID string `json:"id"`
}

type moveRequest struct {
	ID string `json:"id"`
	To int    `json:"to"`
}

type reorderRequest struct {
	Chain string `json:"chain"`
	From  int    `json:"from"`
	To    int    `json:"to"`
}

// bypassRequest toggles when Bypassed is absent.
type bypassRequest struct {
	ID       string `json:"id"`
	Bypassed *bool  `json:"bypassed"`
}

type paramRequest struct {
	ID    string                  `json:"id"`
	Name  string                  `json:"name"`
	Value ctyjson.SimpleJSONValue `json:"value"`
}

type crossfadeRequest struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

type deviceRequest struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type labelRequest struct {
	Label string `json:"label"`
}
