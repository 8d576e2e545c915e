package memroute

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/patchbay/internal/routing"
)

// Op names a recorded substrate operation.
type Op string

const (
	OpCreate        Op = "create"
	OpConnect       Op = "connect"
	OpConnectParam  Op = "connect_param"
	OpDisconnectAll Op = "disconnect_all"
	OpSetParam      Op = "set_param"
	OpLoadProcessor Op = "load_processor"
	OpRelease       Op = "release"
)

// Call is one recorded operation.
type Call struct {
	Op    Op
	From  string
	To    string
	Param string
}

// Link is one outgoing connection. Param is empty for audio connections.
type Link struct {
	From  routing.Port
	To    routing.Port
	Param string
}

// node implements routing.Port.
type node struct {
	owner    *Substrate
	id       string
	kind     routing.Kind
	label    string
	params   map[string]float64
	released bool
}

func (n *node) ID() string         { return n.id }
func (n *node) Kind() routing.Kind { return n.kind }
func (n *node) Label() string      { return n.label }
func (n *node) String() string     { return n.id }

type edge struct {
	to    *node
	param string
}

// Substrate is the recording substrate.
type Substrate struct {
	mu          sync.RWMutex
	nodes       map[string]*node
	order       []*node
	out         map[string][]edge
	seq         map[string]int
	calls       []Call
	faults      map[Op][]error
	processors  map[string]struct{}
	loadLatency time.Duration
	loadGate    <-chan struct{}
	closed      bool
}

// Option configures a Substrate.
type Option func(*Substrate)

// WithLoadLatency makes LoadProcessor block for d before completing.
func WithLoadLatency(d time.Duration) Option {
	return func(s *Substrate) { s.loadLatency = d }
}

// WithLoadGate makes LoadProcessor block until gate is closed.
func WithLoadGate(gate <-chan struct{}) Option {
	return func(s *Substrate) { s.loadGate = gate }
}

// New creates an empty recording substrate.
func New(opts ...Option) *Substrate {
	s := &Substrate{
		nodes:      make(map[string]*node),
		out:        make(map[string][]edge),
		seq:        make(map[string]int),
		faults:     make(map[Op][]error),
		processors: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open adapts New to routing.Opener.
func Open(opts ...Option) routing.Opener {
	return func(ctx context.Context) (routing.Substrate, error) {
		return New(opts...), nil
	}
}

// FailNext makes the next call of op fail with err. Multiple faults for the
// same op are consumed in order.
func (s *Substrate) FailNext(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = append(s.faults[op], err)
}

// fault pops a pending fault for op. Caller holds the write lock.
func (s *Substrate) fault(op Op) error {
	pending := s.faults[op]
	if len(pending) == 0 {
		return nil
	}
	s.faults[op] = pending[1:]
	return pending[0]
}

// resolve maps a Port back to a live node. Caller holds a lock.
func (s *Substrate) resolve(p routing.Port) (*node, error) {
	if p == nil {
		return nil, routing.ErrUnknownPort
	}
	n, ok := p.(*node)
	if !ok || n.owner != s {
		return nil, routing.ErrIncompatible
	}
	if _, exists := s.nodes[n.id]; !exists {
		return nil, routing.ErrUnknownPort
	}
	if n.released {
		return nil, routing.ErrReleased
	}
	return n, nil
}

func (s *Substrate) CreateNode(ctx context.Context, kind routing.Kind, label string, params routing.Params) (routing.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &routing.Error{Op: string(OpCreate), Err: routing.ErrClosed}
	}
	if err := s.fault(OpCreate); err != nil {
		return nil, &routing.Error{Op: string(OpCreate), Err: err}
	}
	if label == "" {
		label = string(kind)
	}
	if kind == routing.KindWorklet {
		if _, loaded := s.processors[label]; !loaded {
			return nil, &routing.Error{Op: string(OpCreate), Err: fmt.Errorf("processor %q not loaded", label)}
		}
	}

	s.seq[label]++
	n := &node{
		owner:  s,
		id:     fmt.Sprintf("%s#%d", label, s.seq[label]),
		kind:   kind,
		label:  label,
		params: make(map[string]float64, len(params)),
	}
	for k, v := range params {
		n.params[k] = v
	}
	s.nodes[n.id] = n
	s.order = append(s.order, n)
	s.calls = append(s.calls, Call{Op: OpCreate, From: n.id})
	return n, nil
}

func (s *Substrate) Connect(ctx context.Context, src, dst routing.Port) error {
	return s.link(OpConnect, src, dst, "")
}

func (s *Substrate) ConnectParam(ctx context.Context, src, dst routing.Port, param string) error {
	return s.link(OpConnectParam, src, dst, param)
}

func (s *Substrate) link(op Op, src, dst routing.Port, param string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(op); err != nil {
		return &routing.Error{Op: string(op), From: src, To: dst, Err: err}
	}
	from, err := s.resolve(src)
	if err != nil {
		return &routing.Error{Op: string(op), From: src, To: dst, Err: err}
	}
	to, err := s.resolve(dst)
	if err != nil {
		return &routing.Error{Op: string(op), From: src, To: dst, Err: err}
	}

	s.calls = append(s.calls, Call{Op: op, From: from.id, To: to.id, Param: param})
	for _, e := range s.out[from.id] {
		if e.to == to && e.param == param {
			return nil // Connecting twice is a no-op.
		}
	}
	s.out[from.id] = append(s.out[from.id], edge{to: to, param: param})
	return nil
}

func (s *Substrate) DisconnectAll(ctx context.Context, port routing.Port) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpDisconnectAll); err != nil {
		return &routing.Error{Op: string(OpDisconnectAll), From: port, Err: err}
	}
	n, err := s.resolve(port)
	if err != nil {
		return &routing.Error{Op: string(OpDisconnectAll), From: port, Err: err}
	}
	s.calls = append(s.calls, Call{Op: OpDisconnectAll, From: n.id})
	delete(s.out, n.id)
	return nil
}

func (s *Substrate) SetParam(ctx context.Context, port routing.Port, name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpSetParam); err != nil {
		return &routing.Error{Op: string(OpSetParam), From: port, Err: err}
	}
	n, err := s.resolve(port)
	if err != nil {
		return &routing.Error{Op: string(OpSetParam), From: port, Err: err}
	}
	s.calls = append(s.calls, Call{Op: OpSetParam, From: n.id, Param: name})
	n.params[name] = value
	return nil
}

func (s *Substrate) LoadProcessor(ctx context.Context, name string) error {
	if s.loadGate != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.loadGate:
		}
	}
	if s.loadLatency > 0 {
		timer := time.NewTimer(s.loadLatency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpLoadProcessor); err != nil {
		return &routing.Error{Op: string(OpLoadProcessor), Err: err}
	}
	if s.closed {
		return &routing.Error{Op: string(OpLoadProcessor), Err: routing.ErrClosed}
	}
	s.calls = append(s.calls, Call{Op: OpLoadProcessor, Param: name})
	s.processors[name] = struct{}{}
	return nil
}

func (s *Substrate) Release(ctx context.Context, port routing.Port) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpRelease); err != nil {
		return &routing.Error{Op: string(OpRelease), From: port, Err: err}
	}
	n, err := s.resolve(port)
	if err != nil {
		return &routing.Error{Op: string(OpRelease), From: port, Err: err}
	}
	s.calls = append(s.calls, Call{Op: OpRelease, From: n.id})
	n.released = true
	delete(s.out, n.id)
	for id, edges := range s.out {
		kept := edges[:0]
		for _, e := range edges {
			if e.to != n {
				kept = append(kept, e)
			}
		}
		s.out[id] = kept
	}
	return nil
}

func (s *Substrate) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
