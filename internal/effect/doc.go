// Package effect holds the building blocks shared by concrete effect modules.
//
// A Builder collects the declarations of a module's internal subgraph (named
// nodes, audio edges, modulation edges, the input and output nodes, the bypass
// binding and the parameter table) and Build creates all of it on the
// substrate in one go, returning a ready Unit. Declaration mistakes are
// accumulated and reported together by Build.
//
// Async wraps a Unit whose construction has to wait for a processor
// definition to load. It stays pending until loading completes and discards
// its nodes if it was removed in the meantime.
package effect
