// Package registry maps module kinds to the factories that build them.
//
// Each module package exposes a Provider whose Register method declares one
// or more kinds: a description, the typed parameters the kind accepts and the
// factory that wires its subgraph on a routing substrate. Parameters are
// go-cty values; the registry fills in defaults, converts values to the
// declared type and range-checks numbers before a factory ever sees them.
//
// The registry is populated once at start-up. Registering a kind twice is a
// programming error and panics. Validate checks the declarations themselves so
// that a bad default surfaces at start-up rather than on first use.
package registry
