package command

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tailview/tailview/engine"
	"github.com/tailview/tailview/filter"
	"github.com/tailview/tailview/logstore"
)

func testLines() []logstore.Line {
	texts := []string{"ERROR one", "plain", "WARN two", "ERROR three", "noise"}
	lines := make([]logstore.Line, len(texts))
	for i, t := range texts {
		lines[i] = logstore.Line{Num: uint64(i + 1), Text: t}
	}
	return lines
}

func scan(root *filter.Node) []engine.FilteredLine {
	return engine.Scan(testLines(), root, engine.Options{ContextLines: 1})
}

func TestExecuteUndoRedoRoundTrip(t *testing.T) {
	root := filter.NewOr(filter.NewSubstring("ERROR"))
	e := NewExecutor(nil)

	before := scan(root)

	add := &AddChild{Parent: root, Child: filter.NewSubstring("WARN"), Index: 1}
	if err := e.Execute(add); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	after := scan(root)
	if reflect.DeepEqual(before, after) {
		t.Fatal("adding a WARN branch should change the view")
	}

	if err := e.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := scan(root); !reflect.DeepEqual(got, before) {
		t.Errorf("undo did not restore output:\nhave %v\nwant %v", got, before)
	}

	if err := e.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if got := scan(root); !reflect.DeepEqual(got, after) {
		t.Errorf("redo did not restore post-execute output:\nhave %v\nwant %v", got, after)
	}
}

func TestEachCallNotifiesExactlyOnce(t *testing.T) {
	root := filter.NewAnd()
	var count int
	e := NewExecutor(NotifierFunc(func() { count++ }))

	actions := []Action{
		&AddChild{Parent: root, Child: filter.NewSubstring("a"), Index: 0},
		&ToggleEnabled{Node: root},
		&SetColorKey{Node: root, Key: "Red"},
	}
	for _, a := range actions {
		if err := e.Execute(a); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if count != 3 {
		t.Fatalf("notify count after 3 executes = %d", count)
	}

	e.Undo()
	e.Undo()
	e.Redo()
	if count != 6 {
		t.Errorf("notify count = %d, want 6", count)
	}

	// No-op undo/redo must not notify.
	e.Redo() // redo stack now empty? one redo remains after two undos + one redo
	e.Undo()
	e.Undo()
	e.Undo()
	before := count
	if err := e.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo on empty stack = %v", err)
	}
	if count != before {
		t.Error("empty Undo must not notify")
	}
}

func TestFailedActionLeavesStacksAlone(t *testing.T) {
	var count int
	e := NewExecutor(NotifierFunc(func() { count++ }))

	// Setting a value on a composite fails with ErrUnsupported.
	bad := &SetValue{Node: filter.NewAnd(), Text: "x"}
	if err := e.Execute(bad); !errors.Is(err, filter.ErrUnsupported) {
		t.Fatalf("Execute = %v, want ErrUnsupported", err)
	}
	if e.CanUndo() || count != 0 {
		t.Error("failed execute must not push or notify")
	}
}

func TestExecuteClearsRedo(t *testing.T) {
	root := filter.NewAnd()
	e := NewExecutor(nil)

	e.Execute(&AddChild{Parent: root, Child: filter.NewSubstring("a"), Index: 0})
	e.Execute(&AddChild{Parent: root, Child: filter.NewSubstring("b"), Index: 1})
	e.Undo()
	if !e.CanRedo() {
		t.Fatal("expected redo available after undo")
	}

	e.Execute(&AddChild{Parent: root, Child: filter.NewSubstring("c"), Index: 1})
	if e.CanRedo() {
		t.Error("execute must clear the redo stack")
	}
}

func TestRemoveChildRestoresExactPosition(t *testing.T) {
	a, b, c := filter.NewSubstring("a"), filter.NewSubstring("b"), filter.NewSubstring("c")
	root := filter.NewAnd(a, b, c)
	e := NewExecutor(nil)

	rm := &RemoveChild{Parent: root, Index: 1}
	if err := e.Execute(rm); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if root.IndexOf(b) != -1 {
		t.Fatal("b should be removed")
	}

	if err := e.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if root.IndexOf(b) != 1 {
		t.Errorf("b restored at index %d, want 1", root.IndexOf(b))
	}
	if len(root.Children) != 3 {
		t.Errorf("children = %d, want 3", len(root.Children))
	}
}

func TestRemoveChildOutOfRange(t *testing.T) {
	e := NewExecutor(nil)
	rm := &RemoveChild{Parent: filter.NewAnd(), Index: 0}
	if err := e.Execute(rm); err == nil {
		t.Error("expected error removing from empty composite")
	}
	if e.CanUndo() {
		t.Error("failed remove must not be undoable")
	}
}

func TestSetValueUndoRestoresRegexBehavior(t *testing.T) {
	n := filter.NewRegex("ERROR", true)
	e := NewExecutor(nil)

	if err := e.Execute(&SetValue{Node: n, Text: "WARN"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !n.IsMatch("WARN x") || n.IsMatch("ERROR x") {
		t.Fatal("pattern change not applied")
	}

	e.Undo()
	if !n.IsMatch("ERROR x") || n.IsMatch("WARN x") {
		t.Error("undo must recompile the prior pattern")
	}
}

func TestToggleEnabledInvolution(t *testing.T) {
	n := filter.NewSubstring("x")
	e := NewExecutor(nil)

	e.Execute(&ToggleEnabled{Node: n})
	if n.Enabled {
		t.Fatal("toggle should disable")
	}
	e.Undo()
	if !n.Enabled {
		t.Fatal("undo should re-enable")
	}
	e.Redo()
	if n.Enabled {
		t.Fatal("redo should disable again")
	}
}

func TestSetColorKeyRoundTrip(t *testing.T) {
	n := filter.NewSubstring("x")
	e := NewExecutor(nil)

	e.Execute(&SetColorKey{Node: n, Key: "Amber"})
	if n.ColorKey != "Amber" {
		t.Fatalf("ColorKey = %q", n.ColorKey)
	}
	e.Undo()
	if n.ColorKey != filter.DefaultColorKey {
		t.Errorf("ColorKey after undo = %q, want %q", n.ColorKey, filter.DefaultColorKey)
	}
}
