// Package nested implements modules that contain chains of their own.
//
// A Container sits in its parent chain like any other module: it has one
// input (generalIn) and one output (generalOut). Inside, generalIn feeds one
// tap node per branch, each tap is the external input of a child chain, and
// each child chain ends in a return node that feeds generalOut. Because the
// child chains are ordinary chains holding ordinary modules, containers nest
// to any depth.
//
// Bypassing a container disconnects generalIn from the taps and the returns
// from generalOut and connects generalIn straight to generalOut; the child
// chains keep their own wiring.
//
// Group has one branch at unity gain. Splitter has two branches whose tap
// gains follow a crossfade value x: branch A gets 1-x and branch B gets x.
package nested
