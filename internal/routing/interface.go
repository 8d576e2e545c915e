package routing

import "context"

// Kind names the type of a substrate node.
type Kind string

const (
	KindGain        Kind = "gain"
	KindDelay       Kind = "delay"
	KindWaveShaper  Kind = "waveshaper"
	KindBiquad      Kind = "biquad"
	KindCompressor  Kind = "compressor"
	KindPanner      Kind = "panner"
	KindOscillator  Kind = "oscillator"
	KindConvolver   Kind = "convolver"
	KindWorklet     Kind = "worklet"
	KindDevice      Kind = "device"
	KindSource      Kind = "source"
	KindDestination Kind = "destination"
)

// Params holds initial parameter values for a new node.
type Params map[string]float64

// Port is an addressable connection point on the substrate. A Port is owned by
// exactly one module or chain boundary.
type Port interface {
	// ID is unique within the substrate that created the port.
	ID() string
	Kind() Kind
	Label() string
}

// Substrate is the audio-routing backend.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use: asynchronously loaded modules
// resolve on their own goroutines while the session mutates other chains.
type Substrate interface {
	// CreateNode allocates a node of the given kind. The label is informational
	// and need not be unique.
	CreateNode(ctx context.Context, kind Kind, label string, params Params) (Port, error)

	// Connect adds an audio connection from src to dst. Connecting an existing
	// pair again must not create a duplicate connection.
	Connect(ctx context.Context, src, dst Port) error

	// ConnectParam connects src to a parameter of dst (modulation).
	ConnectParam(ctx context.Context, src, dst Port, param string) error

	// DisconnectAll severs every outgoing connection of port, both audio and
	// modulation. Incoming connections are left untouched.
	DisconnectAll(ctx context.Context, port Port) error

	// SetParam sets a parameter value immediately.
	SetParam(ctx context.Context, port Port, name string, value float64) error

	// LoadProcessor blocks until the named processing-unit definition is
	// available for KindWorklet nodes.
	LoadProcessor(ctx context.Context, name string) error

	// Release frees a node and severs all its incoming and outgoing connections.
	Release(ctx context.Context, port Port) error

	// Close releases the substrate itself.
	Close(ctx context.Context) error
}
