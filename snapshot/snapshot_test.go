package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/tailview/tailview/logstore"
)

func TestWriteReadRoundTrip(t *testing.T) {
	st := logstore.NewStore()
	want := []string{"first", "", "third with spaces", "ERROR: disk full", "日本語の行"}
	for _, text := range want {
		st.Append(text)
	}

	path := filepath.Join(t.TempDir(), "view.snap")
	w, err := NewWriter()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteSnapshot(path, st); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	r, err := NewReader()
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("rows = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEmptyStoreRoundTrip(t *testing.T) {
	st := logstore.NewStore()
	path := filepath.Join(t.TempDir(), "empty.snap")

	w, _ := NewWriter()
	if err := w.WriteSnapshot(path, st); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	r, _ := NewReader()
	got, err := r.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("rows = %d, want 0", len(got))
	}
}

func TestRejectsWrongHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.snap")
	if err := os.WriteFile(path, []byte("NOTASNAPFILE...."), 0644); err != nil {
		t.Fatal(err)
	}

	r, _ := NewReader()
	if _, err := r.ReadSnapshot(path); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("err = %v, want ErrInvalidHeader", err)
	}
}

func TestRejectsCorruptedBlock(t *testing.T) {
	st := logstore.NewStore()
	for i := 0; i < 100; i++ {
		st.Append(fmt.Sprintf("line %d with some padding to compress", i))
	}

	path := filepath.Join(t.TempDir(), "view.snap")
	w, _ := NewWriter()
	if err := w.WriteSnapshot(path, st); err != nil {
		t.Fatal(err)
	}

	// Flip one byte in the digest footer; the checksum must catch it.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	r, _ := NewReader()
	if _, err := r.ReadSnapshot(path); !errors.Is(err, ErrChecksum) {
		t.Errorf("err = %v, want ErrChecksum", err)
	}
}

func TestRejectsTruncatedFile(t *testing.T) {
	st := logstore.NewStore()
	st.Append("only line")

	path := filepath.Join(t.TempDir(), "view.snap")
	w, _ := NewWriter()
	if err := w.WriteSnapshot(path, st); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-10], 0644); err != nil {
		t.Fatal(err)
	}

	r, _ := NewReader()
	if _, err := r.ReadSnapshot(path); err == nil {
		t.Error("expected error for truncated file")
	}
}
