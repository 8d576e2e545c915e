// Package remote is a socket.io client for the control surface. It sends one
// event per call and waits for the acknowledgement.
package remote
