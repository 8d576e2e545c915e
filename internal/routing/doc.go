// Package routing defines the contract between the signal-graph manager and the
// audio-routing substrate that actually moves samples between nodes.
//
// # Why Routing Package Exists
//
// Chains, bypass controllers and nested containers only ever talk to the
// substrate through the Substrate interface. This keeps the graph manager
// independent of any concrete audio backend:
//   - **Testability:** the in-memory recorder (internal/memroute) stands in for a
//     real backend and records every connect/disconnect call
//   - **Ownership:** every Port is created by exactly one owner (a module or a
//     chain boundary) and released by that owner
//   - **Uniformity:** composite modules expose the same Port pair as primitive ones
//
// # Primitive Operations
//
// The graph manager relies on two primitives, both assumed atomic and idempotent:
//
//	Connect(src, dst)    // add one audio connection, a no-op if it already exists
//	DisconnectAll(port)  // sever every outgoing connection of port
//
// Everything else (node creation, parameters, processor loading) is used by
// concrete modules when they build their internal sub-graph.
//
// # Lifecycle
//
// The substrate is process-wide shared state. Engine wraps it with an explicit
// init-once / teardown-on-shutdown lifecycle and is passed by reference into
// sessions and chains; nothing in this repository looks it up globally.
package routing
