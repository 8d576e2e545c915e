// Package session serialises the UI operation set onto a single chain tree.
//
// A Session owns the root chain, the source and destination boundary nodes
// on the routing substrate and an index from module ID to the module and the
// chain holding it, across every nesting level. Each operation takes the
// session lock, so UI actions apply one at a time and their effects are
// visible when the call returns; modules that are still loading become wired
// later on their own goroutine.
//
// Chains are addressed with a ChainRef: the empty ref is the root chain and
// "<moduleID>/<branch>" addresses a nested chain. References to modules that
// no longer exist are stale and ignored.
//
// Substrate failures from synchronous operations are returned to the caller.
// Failures that happen asynchronously (a module finishing its load and the
// deferred replanning failing) are recorded and passed to the error handler
// installed with OnError.
package session
