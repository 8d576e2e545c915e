// Package bypass rewires a module's internal subgraph between its active
// processing path and a direct input-to-output connection.
//
// A Controller works from a Binding: the module's input port, its output port,
// the ports the input feeds when active and the ports that feed the output
// when active. Switching always severs the outgoing connections of the input
// and of every connected-to-output port first, then reconnects for the new
// state. The connections between the module's other internal nodes are never
// touched, so they are ready again when bypass is released.
//
// A DelegateController handles modules whose processing is a device that can
// be loaded or replaced at any time.
package bypass
