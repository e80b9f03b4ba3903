package logstore

import (
	"fmt"
	"sync"
	"testing"
)

func TestAppendNumbering(t *testing.T) {
	s := NewStore()

	for i := 1; i <= 5; i++ {
		num := s.Append(fmt.Sprintf("line %d", i))
		if num != uint64(i) {
			t.Errorf("Append returned %d, want %d", num, i)
		}
	}

	if s.Len() != 5 {
		t.Errorf("Len = %d, want 5", s.Len())
	}

	snap := s.Snapshot()
	for i, line := range snap {
		if line.Num != uint64(i+1) {
			t.Errorf("snapshot[%d].Num = %d, want %d", i, line.Num, i+1)
		}
	}
}

func TestClearRestartsNumbering(t *testing.T) {
	s := NewStore()
	s.Append("a")
	s.Append("b")

	gen := s.Generation()
	s.Clear()

	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", s.Len())
	}
	if s.Generation() == gen {
		t.Error("Generation should change on Clear")
	}
	if s.SizeBytes() != 0 {
		t.Errorf("SizeBytes after Clear = %d, want 0", s.SizeBytes())
	}

	if num := s.Append("c"); num != 1 {
		t.Errorf("Append after Clear returned %d, want 1", num)
	}
}

func TestSnapshotStableDuringAppends(t *testing.T) {
	s := NewStore()
	for i := 0; i < 100; i++ {
		s.Append(fmt.Sprintf("line %d", i))
	}

	snap := s.Snapshot()

	// Concurrent appends must not disturb the snapshot.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			s.Append("later")
		}
	}()

	for i := 0; i < 1000; i++ {
		for j, line := range snap {
			if line.Num != uint64(j+1) {
				t.Fatalf("snapshot mutated at %d: %+v", j, line)
			}
		}
	}
	wg.Wait()

	if len(snap) != 100 {
		t.Errorf("snapshot length changed: %d", len(snap))
	}
}
