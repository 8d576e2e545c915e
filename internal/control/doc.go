// Package control exposes a session to the UI over socket.io.
//
// The Dispatcher maps event names to session operations. Payloads are JSON
// objects and every event is answered with an Ack. After a mutation the
// dispatcher publishes the new session state; substrate failures, whether
// returned by an operation or reported later by a module that finished
// loading, are published as errors. The Dispatcher has no network
// dependency and is what the tests drive.
//
// The Server mounts the socket.io handler at /socket.io/ and a health check
// at /health on one http.Server, broadcasting published state as
// "patch:state" and errors as "patch:error" to every connected client.
package control
