package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/specialistvlad/patchbay/internal/session"
	"github.com/zclconf/go-cty/cty"
)

// ErrUnknownEvent is returned for events without a handler.
var ErrUnknownEvent = errors.New("unknown event")

// Handler runs one event against the session.
type Handler func(ctx context.Context, payload []byte) (Ack, error)

type route struct {
	handle Handler
	// mutates marks events whose success publishes the new state.
	mutates bool
}

// Dispatcher routes events to session operations.
type Dispatcher struct {
	session *session.Session
	routes  map[string]route

	mu      sync.Mutex
	onState func(ctx context.Context, st session.State)
	onError func(ctx context.Context, err error)
}

// NewDispatcher creates a dispatcher for s and subscribes to its
// asynchronous failures.
func NewDispatcher(s *session.Session) *Dispatcher {
	d := &Dispatcher{session: s}
	d.routes = map[string]route{
		EventAdd:       {d.add, true},
		EventRemove:    {d.remove, true},
		EventMove:      {d.move, true},
		EventReorder:   {d.reorder, true},
		EventBypass:    {d.bypass, true},
		EventParam:     {d.param, true},
		EventCrossfade: {d.crossfade, true},
		EventDevice:    {d.device, true},
		EventInput:     {d.input, true},
		EventOutput:    {d.output, true},
		EventState:     {d.state, false},
	}
	s.OnError(d.publishError)
	return d
}

// Events returns the accepted event names in sorted order.
func (d *Dispatcher) Events() []string {
	names := make([]string, 0, len(d.routes))
	for name := range d.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OnState installs the subscriber for state changes.
func (d *Dispatcher) OnState(fn func(ctx context.Context, st session.State)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onState = fn
}

// OnError installs the subscriber for substrate failures.
func (d *Dispatcher) OnError(fn func(ctx context.Context, err error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onError = fn
}

// Dispatch runs event with the JSON payload and returns the acknowledgement.
func (d *Dispatcher) Dispatch(ctx context.Context, event string, payload []byte) Ack {
	logger := ctxlog.FromContext(ctx).With("event", event)
	r, ok := d.routes[event]
	if !ok {
		logger.Warn("Unknown control event.")
		return Ack{Error: fmt.Sprintf("%s: %q", ErrUnknownEvent, event)}
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	ack, err := r.handle(ctx, payload)
	if err != nil {
		logger.Debug("Control event failed.", "error", err)
		if routing.IsSubstrateFailure(err) {
			d.publishError(ctx, err)
		}
		ack.OK = false
		ack.Error = err.Error()
		// A failed mutation can still have changed the tree.
		if r.mutates {
			d.publishState(ctx)
		}
		return ack
	}

	ack.OK = true
	if r.mutates {
		d.publishState(ctx)
	}
	logger.Debug("Control event handled.")
	return ack
}

func (d *Dispatcher) publishState(ctx context.Context) {
	d.mu.Lock()
	fn := d.onState
	d.mu.Unlock()
	if fn != nil {
		fn(ctx, d.session.Snapshot())
	}
}

func (d *Dispatcher) publishError(ctx context.Context, err error) {
	d.mu.Lock()
	fn := d.onError
	d.mu.Unlock()
	if fn != nil {
		fn(ctx, err)
	}
}

func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func (d *Dispatcher) add(ctx context.Context, payload []byte) (Ack, error) {
	var req addRequest
	if err := decode(payload, &req); err != nil {
		return Ack{}, err
	}
	position := -1
	if req.Position != nil {
		position = *req.Position
	}
	var params map[string]cty.Value
	if len(req.Params) > 0 {
		params = make(map[string]cty.Value, len(req.Params))
		for k, v := range req.Params {
			params[k] = v.Value
		}
	}

	id, err := d.session.AddModule(ctx, session.ChainRef(req.Chain), req.Kind, req.Name, position, params)
	return Ack{ID: id.String()}, err
}

func (d *Dispatcher) remove(ctx context.Context, payload []byte) (Ack, error) {
	var req idRequest
	if err := decode(payload, &req); err != nil {
		return Ack{}, err
	}
	return Ack{}, d.session.RemoveModule(ctx, module.ID(req.ID))
}

func (d *Dispatcher) move(ctx context.Context, payload []byte) (Ack, error) {
	var req moveRequest
	if err := decode(payload, &req); err != nil {
		return Ack{}, err
	}
	return Ack{}, d.session.Move(ctx, module.ID(req.ID), req.To)
}

func (d *Dispatcher) reorder(ctx context.Context, payload []byte) (Ack, error) {
	var req reorderRequest
	if err := decode(payload, &req); err != nil {
		return Ack{}, err
	}
	return Ack{}, d.session.Reorder(ctx, session.ChainRef(req.Chain), req.From, req.To)
}

func (d *Dispatcher) bypass(ctx context.Context, payload []byte) (Ack, error) {
	var req bypassRequest
	if err := decode(payload, &req); err != nil {
		return Ack{}, err
	}
	id := module.ID(req.ID)
	if req.Bypassed == nil {
		on, err := d.session.ToggleBypass(ctx, id)
		return Ack{Bypassed: &on}, err
	}
	on := *req.Bypassed
	return Ack{Bypassed: &on}, d.session.SetBypass(ctx, id, on)
}

func (d *Dispatcher) param(ctx context.Context, payload []byte) (Ack, error) {
	var req paramRequest
	if err := decode(payload, &req); err != nil {
		return Ack{}, err
	}
	if req.Value.Value.IsNull() {
		return Ack{}, fmt.Errorf("invalid payload: parameter %q has no value", req.Name)
	}
	return Ack{}, d.session.SetParam(ctx, module.ID(req.ID), req.Name, req.Value.Value)
}

func (d *Dispatcher) crossfade(ctx context.Context, payload []byte) (Ack, error) {
	var req crossfadeRequest
	if err := decode(payload, &req); err != nil {
		return Ack{}, err
	}
	return Ack{}, d.session.SetCrossfade(ctx, module.ID(req.ID), req.Value)
}

func (d *Dispatcher) device(ctx context.Context, payload []byte) (Ack, error) {
	var req deviceRequest
	if err := decode(payload, &req); err != nil {
		return Ack{}, err
	}
	return Ack{}, d.session.LoadDevice(ctx, module.ID(req.ID), req.Path)
}

func (d *Dispatcher) input(ctx context.Context, payload []byte) (Ack, error) {
	var req labelRequest
	if err := decode(payload, &req); err != nil {
		return Ack{}, err
	}
	return Ack{}, d.session.SelectInput(ctx, req.Label)
}

func (d *Dispatcher) output(ctx context.Context, payload []byte) (Ack, error) {
	var req labelRequest
	if err := decode(payload, &req); err != nil {
		return Ack{}, err
	}
	return Ack{}, d.session.SetOutput(ctx, req.Label)
}

func (d *Dispatcher) state(ctx context.Context, payload []byte) (Ack, error) {
	st := d.session.Snapshot()
	return Ack{State: &st}, nil
}
