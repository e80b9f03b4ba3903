// Package session wires one log view together: a line store fed by a line
// source, the incremental filter stream over it, and the undoable command
// surface for editing the active filter tree.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tailview/tailview/command"
	"github.com/tailview/tailview/filter"
	"github.com/tailview/tailview/logstore"
	"github.com/tailview/tailview/profile"
	"github.com/tailview/tailview/snapshot"
	"github.com/tailview/tailview/stream"
)

// Options configures a Session.
type Options struct {
	// TotalsInterval is forwarded to the stream's telemetry sampler.
	TotalsInterval time.Duration
}

// Session owns one live log view: store, stream, executor, and the active
// filter settings. Each session has its own store; there is no process-wide
// tailing state.
type Session struct {
	store  *logstore.Store
	stream *stream.Stream
	exec   *command.Executor

	mu           sync.Mutex
	root         *filter.Node
	contextLines int

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	srcErrs   chan error
	closeOnce sync.Once
}

// New creates a session and starts its stream.
func New(ctx context.Context, opts Options) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		store:   logstore.NewStore(),
		cancel:  cancel,
		srcErrs: make(chan error, 1),
	}
	s.stream = stream.New(s.store, stream.Options{TotalsInterval: opts.TotalsInterval})
	s.exec = command.NewExecutor(command.NotifierFunc(s.refilter))
	s.stream.Start(ctx)
	return s
}

// Close stops the source and the stream.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.stream.Close()
	})
}

// Store returns the session's line store.
func (s *Session) Store() *logstore.Store { return s.store }

// Subscribe returns an ordered update channel from the stream.
func (s *Session) Subscribe() <-chan stream.Update { return s.stream.Subscribe() }

// Errors returns the stream's line-scoped evaluation error channel.
func (s *Session) Errors() <-chan stream.LineError { return s.stream.Errors() }

// Totals returns the throttled total-line-count channel.
func (s *Session) Totals() <-chan uint64 { return s.stream.Totals() }

// SourceErrors surfaces failures from the attached line source. The session
// stays usable for the data already ingested.
func (s *Session) SourceErrors() <-chan error { return s.srcErrs }

// AppendLine implements Sink: one line from the source into the store.
func (s *Session) AppendLine(text string) uint64 {
	num := s.store.Append(text)
	s.stream.NotifyAppend()
	return num
}

// SourceReset implements Sink: the source was truncated or replaced. The
// store restarts numbering and the stream re-emits from scratch.
func (s *Session) SourceReset() {
	s.store.Clear()
	s.stream.Reset()
}

// Attach prepares the source and starts draining it in the background.
func (s *Session) Attach(ctx context.Context, src Source) (int, error) {
	initial, err := src.Prepare(ctx, s)
	if err != nil {
		return 0, fmt.Errorf("session: prepare source: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := src.Run(ctx, s); err != nil && ctx.Err() == nil {
			log.Printf("session: source stopped: %v", err)
			select {
			case s.srcErrs <- err:
			default:
			}
		}
	}()
	return initial, nil
}

// ApplyProfile makes the given profile's tree and context setting active,
// dropping any undo history from the previous profile.
func (s *Session) ApplyProfile(p profile.Profile) {
	s.mu.Lock()
	s.root = p.Root
	s.contextLines = p.ContextLines
	s.mu.Unlock()

	s.exec.Clear()
	s.refilter()
}

// SetRoot replaces the active tree root outside the undo system.
func (s *Session) SetRoot(root *filter.Node) {
	s.mu.Lock()
	s.root = root
	s.mu.Unlock()
	s.refilter()
}

// Root returns the active tree root for edits. Mutate it only through
// Execute or from the goroutine that owns the session.
func (s *Session) Root() *filter.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// SetContextLines updates the context window and re-filters.
func (s *Session) SetContextLines(n int) {
	s.mu.Lock()
	s.contextLines = n
	s.mu.Unlock()
	s.refilter()
}

// Execute runs an undoable tree mutation.
func (s *Session) Execute(a command.Action) error { return s.exec.Execute(a) }

// Undo reverses the last executed action.
func (s *Session) Undo() error { return s.exec.Undo() }

// Redo re-applies the last undone action.
func (s *Session) Redo() error { return s.exec.Redo() }

// CanUndo reports whether an action can be undone.
func (s *Session) CanUndo() bool { return s.exec.CanUndo() }

// CanRedo reports whether an undone action can be re-applied.
func (s *Session) CanRedo() bool { return s.exec.CanRedo() }

func (s *Session) refilter() {
	s.mu.Lock()
	root := s.root
	ctxLines := s.contextLines
	s.mu.Unlock()
	s.stream.UpdateFilterSettings(root, ctxLines)
}

// SaveSnapshot persists the current store contents to path.
func (s *Session) SaveSnapshot(path string) error {
	w, err := snapshot.NewWriter()
	if err != nil {
		return err
	}
	return w.WriteSnapshot(path, s.store)
}

// LoadSnapshot replaces the store contents with a saved snapshot and resets
// the stream. Attach a source afterwards to continue tailing.
func (s *Session) LoadSnapshot(path string) (int, error) {
	r, err := snapshot.NewReader()
	if err != nil {
		return 0, err
	}
	texts, err := r.ReadSnapshot(path)
	if err != nil {
		return 0, err
	}

	s.store.Clear()
	for _, text := range texts {
		s.store.Append(text)
	}
	s.stream.Reset()
	return len(texts), nil
}
