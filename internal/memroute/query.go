package memroute

import (
	"fmt"
	"io"
	"sort"

	"github.com/specialistvlad/patchbay/internal/routing"
)

// NodeInfo is a read-only view of a node.
type NodeInfo struct {
	ID       string
	Kind     routing.Kind
	Label    string
	Params   map[string]float64
	Released bool
}

// Outputs returns the audio destinations of p in connection order.
func (s *Substrate) Outputs(p routing.Port) []routing.Port {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ports []routing.Port
	for _, e := range s.out[p.ID()] {
		if e.param == "" {
			ports = append(ports, e.to)
		}
	}
	return ports
}

// Inputs returns every node with an audio connection into p.
func (s *Substrate) Inputs(p routing.Port) []routing.Port {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ports []routing.Port
	for _, n := range s.order {
		for _, e := range s.out[n.id] {
			if e.param == "" && e.to.id == p.ID() {
				ports = append(ports, n)
			}
		}
	}
	return ports
}

// HasEdge reports whether an audio connection from a to b exists.
func (s *Substrate) HasEdge(a, b routing.Port) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.out[a.ID()] {
		if e.param == "" && e.to.id == b.ID() {
			return true
		}
	}
	return false
}

// Edges returns a snapshot of all connections, ordered by source creation
// order and then by connection order.
func (s *Substrate) Edges() []Link {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var links []Link
	for _, n := range s.order {
		for _, e := range s.out[n.id] {
			links = append(links, Link{From: n, To: e.to, Param: e.param})
		}
	}
	return links
}

// Node returns a view of p.
func (s *Substrate) Node(p routing.Port) (NodeInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[p.ID()]
	if !ok {
		return NodeInfo{}, false
	}
	return n.info(), true
}

// Nodes returns views of all nodes in creation order, including released ones.
func (s *Substrate) Nodes() []NodeInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]NodeInfo, 0, len(s.order))
	for _, n := range s.order {
		infos = append(infos, n.info())
	}
	return infos
}

// Live returns the number of nodes that have not been released.
func (s *Substrate) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.order {
		if !n.released {
			count++
		}
	}
	return count
}

// Calls returns a copy of the call log.
func (s *Substrate) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()

	calls := make([]Call, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// ResetCalls clears the call log.
func (s *Substrate) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Dump writes the live nodes and every connection in a stable text form.
func (s *Substrate) Dump(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := fmt.Fprintln(w, "nodes:"); err != nil {
		return err
	}
	for _, n := range s.order {
		if n.released {
			continue
		}
		if _, err := fmt.Fprintf(w, "  %s (%s)%s\n", n.id, n.kind, formatParams(n.params)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "edges:"); err != nil {
		return err
	}
	for _, n := range s.order {
		for _, e := range s.out[n.id] {
			var err error
			if e.param == "" {
				_, err = fmt.Fprintf(w, "  %s -> %s\n", n.id, e.to.id)
			} else {
				_, err = fmt.Fprintf(w, "  %s -> %s.%s\n", n.id, e.to.id, e.param)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (n *node) info() NodeInfo {
	params := make(map[string]float64, len(n.params))
	for k, v := range n.params {
		params[k] = v
	}
	return NodeInfo{ID: n.id, Kind: n.kind, Label: n.label, Params: params, Released: n.released}
}

func formatParams(params map[string]float64) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := " {"
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%g", k, params[k])
	}
	return out + "}"
}
