// Package logstore provides the append-only line container backing a log view
// session. Lines carry stable, monotonically increasing original line numbers
// starting at 1.
package logstore

import (
	"sync"
	"sync/atomic"
)

// Line is a single stored log line.
type Line struct {
	Num  uint64 // Original line number, 1-based.
	Text string
}

// Store holds log lines in arrival order.
//
// Growth is append-only: existing entries are never mutated, so a Snapshot
// taken under the read lock stays valid while the producer keeps appending.
type Store struct {
	mu    sync.RWMutex
	lines []Line
	next  uint64

	// Metadata
	sizeBytes  int64  // Estimated memory usage in bytes
	generation uint64 // Bumped on Clear so readers can detect a source reset
}

// NewStore initializes a Store with pre-allocated capacity.
func NewStore() *Store {
	return &Store{
		lines: make([]Line, 0, 4096),
		next:  1,
	}
}

// Append adds one line and returns its assigned original line number.
func (s *Store) Append(text string) uint64 {
	s.mu.Lock()
	num := s.next
	s.next++
	s.lines = append(s.lines, Line{Num: num, Text: text})
	s.mu.Unlock()

	atomic.AddInt64(&s.sizeBytes, int64(len(text))+8)
	return num
}

// Len returns the number of stored lines.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// SizeBytes returns the estimated memory usage in bytes.
func (s *Store) SizeBytes() int64 {
	return atomic.LoadInt64(&s.sizeBytes)
}

// Generation returns the current numbering generation. It changes exactly
// when Clear is called.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Clear empties the store. Subsequent appends restart numbering at 1 in a new
// generation.
func (s *Store) Clear() {
	s.mu.Lock()
	s.lines = make([]Line, 0, 4096)
	s.next = 1
	s.generation++
	s.mu.Unlock()

	atomic.StoreInt64(&s.sizeBytes, 0)
}

// Snapshot returns the stored lines in order. The returned slice shares the
// backing array with the store; because growth is append-only the contents
// never change under the caller.
func (s *Store) Snapshot() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lines[:len(s.lines):len(s.lines)]
}
