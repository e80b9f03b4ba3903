package session

import (
	"context"
)

// Sink receives lines and reset signals from a Source. Session implements it.
type Sink interface {
	// AppendLine stores one line and returns its original line number.
	AppendLine(text string) uint64

	// SourceReset signals that the underlying source was truncated or
	// replaced; accumulated lines no longer correspond to it.
	SourceReset()
}

// Source produces log lines for a session. Implementations wrap whatever
// actually yields lines (a tailed file, a pipe, a test fixture); the session
// only sees the Sink calls.
type Source interface {
	// Prepare delivers any initially available lines to the sink and returns
	// how many it delivered.
	Prepare(ctx context.Context, sink Sink) (int, error)

	// Run delivers subsequent lines until ctx is canceled. A nil return means
	// the source ended normally.
	Run(ctx context.Context, sink Sink) error
}

// PushSource is a channel-backed Source for embedding and tests: the owner
// pushes lines and reset signals explicitly.
type PushSource struct {
	initial []string
	lines   chan string
	resets  chan struct{}
}

// NewPushSource creates a PushSource that delivers the given lines during
// Prepare.
func NewPushSource(initial ...string) *PushSource {
	return &PushSource{
		initial: initial,
		lines:   make(chan string, 256),
		resets:  make(chan struct{}, 1),
	}
}

// Push queues one line for delivery.
func (p *PushSource) Push(text string) {
	p.lines <- text
}

// Reset queues a source-reset signal.
func (p *PushSource) Reset() {
	select {
	case p.resets <- struct{}{}:
	default:
	}
}

func (p *PushSource) Prepare(_ context.Context, sink Sink) (int, error) {
	for _, text := range p.initial {
		sink.AppendLine(text)
	}
	return len(p.initial), nil
}

func (p *PushSource) Run(ctx context.Context, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.resets:
			sink.SourceReset()
		case text := <-p.lines:
			sink.AppendLine(text)
		}
	}
}
