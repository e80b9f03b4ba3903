package stream

import (
	"fmt"

	"github.com/tailview/tailview/engine"
)

// UpdateKind distinguishes the two event shapes a Stream emits.
type UpdateKind int

const (
	// UpdateAppend carries only newly included lines; the consumer appends
	// them to its current view.
	UpdateAppend UpdateKind = iota

	// UpdateReplace carries the whole filtered view and supersedes all prior
	// state.
	UpdateReplace
)

// Update is one ordered event from a Stream. Consumers must apply updates in
// the order received and must not mutate Lines.
type Update struct {
	Kind  UpdateKind
	Lines []engine.FilteredLine

	// InitialLoadComplete is set on the first Replace after activation or
	// reset, so consumers can clear a loading indicator even when the result
	// set is empty. Meaningful on Replace only.
	InitialLoadComplete bool
}

// LineError reports a recoverable, line-scoped evaluation failure.
type LineError struct {
	Num uint64
	Err error
}

func (e LineError) Error() string {
	return fmt.Sprintf("stream: line %d: %v", e.Num, e.Err)
}

func (e LineError) Unwrap() error { return e.Err }
