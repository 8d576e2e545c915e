package routing

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompatible is returned when two ports belong to different processing contexts.
	ErrIncompatible = errors.New("ports belong to incompatible processing contexts")
	// ErrReleased is returned when an operation references a released node.
	ErrReleased = errors.New("node has been released")
	// ErrUnknownPort is returned for ports the substrate never created.
	ErrUnknownPort = errors.New("unknown port")
	// ErrClosed is returned by a closed substrate.
	ErrClosed = errors.New("substrate is closed")
	// ErrEngineClosed is returned when opening an engine after shutdown.
	ErrEngineClosed = errors.New("engine is closed")
)

// Error is a substrate failure. It is fatal to the wiring attempt that
// produced it and is surfaced to the caller.
type Error struct {
	Op   string
	From Port
	To   Port
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.From != nil && e.To != nil:
		return fmt.Sprintf("routing %s %s -> %s: %v", e.Op, e.From.ID(), e.To.ID(), e.Err)
	case e.From != nil:
		return fmt.Sprintf("routing %s %s: %v", e.Op, e.From.ID(), e.Err)
	default:
		return fmt.Sprintf("routing %s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsSubstrateFailure reports whether err carries a substrate failure.
func IsSubstrateFailure(err error) bool {
	var rerr *Error
	return errors.As(err, &rerr)
}
