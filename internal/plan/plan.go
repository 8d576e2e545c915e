package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/routing"
)

var (
	// ErrNotReady means at least one stage has not been initialised.
	ErrNotReady = errors.New("stage not ready")
	// ErrNoBoundary means the external input or output is not set.
	ErrNoBoundary = errors.New("chain boundary not set")
)

// Stage is one module's pair of ports. A nil port marks the stage as not ready.
type Stage struct {
	In  routing.Port
	Out routing.Port
}

// Ready reports whether both ports are present.
func (s Stage) Ready() bool {
	return s.In != nil && s.Out != nil
}

// Edge is a directed connection.
type Edge struct {
	From routing.Port
	To   routing.Port
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -> %s", e.From.ID(), e.To.ID())
}

// Plan is the full wiring of a chain.
type Plan struct {
	// Sever lists the ports whose outgoing connections are cleared first.
	Sever []routing.Port
	// Edges are connected in order after severing.
	Edges []Edge
}

// Compute builds the plan for in -> stages... -> out.
func Compute(in, out routing.Port, stages []Stage) (Plan, error) {
	if in == nil || out == nil {
		return Plan{}, ErrNoBoundary
	}
	for i, s := range stages {
		if !s.Ready() {
			return Plan{}, fmt.Errorf("stage %d: %w", i, ErrNotReady)
		}
	}

	p := Plan{
		Sever: make([]routing.Port, 0, len(stages)+1),
		Edges: make([]Edge, 0, len(stages)+1),
	}
	p.Sever = append(p.Sever, in)

	prev := in
	for _, s := range stages {
		p.Edges = append(p.Edges, Edge{From: prev, To: s.In})
		p.Sever = append(p.Sever, s.Out)
		prev = s.Out
	}
	p.Edges = append(p.Edges, Edge{From: prev, To: out})
	return p, nil
}

// Apply severs every port in p.Sever and then connects p.Edges in order. The
// first substrate failure aborts the pass.
func Apply(ctx context.Context, sub routing.Substrate, p Plan) error {
	for _, port := range p.Sever {
		if err := sub.DisconnectAll(ctx, port); err != nil {
			return fmt.Errorf("failed to sever %s: %w", port.ID(), err)
		}
	}
	for _, e := range p.Edges {
		if err := sub.Connect(ctx, e.From, e.To); err != nil {
			return fmt.Errorf("failed to connect %s: %w", e, err)
		}
	}
	ctxlog.FromContext(ctx).Debug("Plan applied.", "edge_count", len(p.Edges))
	return nil
}

// Equal reports whether two plans sever and connect the same ports in the
// same order.
func (p Plan) Equal(other Plan) bool {
	if len(p.Sever) != len(other.Sever) || len(p.Edges) != len(other.Edges) {
		return false
	}
	for i := range p.Sever {
		if p.Sever[i].ID() != other.Sever[i].ID() {
			return false
		}
	}
	for i := range p.Edges {
		if p.Edges[i].From.ID() != other.Edges[i].From.ID() || p.Edges[i].To.ID() != other.Edges[i].To.ID() {
			return false
		}
	}
	return true
}

// String renders one edge per line.
func (p Plan) String() string {
	var b strings.Builder
	for _, e := range p.Edges {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
