/*
Package chain implements an ordered, reorderable sequence of modules between
an external input and an external output.

Every mutation (add, remove, reorder, move, boundary change) is followed by a
full replanning pass: the plan package computes the connection set for the
current order and the chain applies it to the routing substrate. The wiring
after each operation therefore equals the planner output for the state at
that moment, regardless of what it was before.

Modules that are still initialising occupy their slot but make the plan not
ready; replanning is skipped until the module's ready callback fires, at
which point the chain replans if the module is still a member. Failures of
such deferred passes are reported to the chain's error handler because there
is no caller to return them to.

References to modules that are no longer in the chain, and indexes out of
range, are ignored: they are the normal result of UI events racing with
removals.
*/
package chain
