// Package memroute provides a thread-safe, in-memory implementation of the
// routing.Substrate interface that records every call made against it.
//
// It moves no audio. It keeps the node set and the connection graph exactly as
// a real backend would, which makes it the mock substrate for the graph
// manager's tests and the backend used by the CLI to render wiring.
//
// Node IDs are deterministic ("<label>#<n>", numbered per label in creation
// order) so dumps are stable enough for golden files.
package memroute
