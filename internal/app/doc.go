// Package app contains the core application logic. It wires the routing
// engine, the module registry, the patch loaders and the session together,
// and exposes the operations the command line drives, decoupled from any
// specific entrypoint.
package app
