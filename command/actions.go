package command

import (
	"errors"
	"fmt"

	"github.com/tailview/tailview/filter"
)

var errNoChild = errors.New("command: no child at index")

// AddChild inserts a node under a parent at a fixed index.
type AddChild struct {
	Parent *filter.Node
	Child  *filter.Node
	Index  int
}

func (a *AddChild) Execute() error {
	if a.Parent == nil || a.Child == nil {
		return errors.New("command: AddChild requires parent and child")
	}
	a.Parent.InsertChild(a.Index, a.Child)
	return nil
}

func (a *AddChild) Undo() error {
	idx := a.Parent.IndexOf(a.Child)
	if idx < 0 {
		return fmt.Errorf("command: AddChild undo: child not under parent")
	}
	a.Parent.RemoveChild(idx)
	return nil
}

// RemoveChild removes the child at an index; Undo restores the exact subtree
// at its prior position.
type RemoveChild struct {
	Parent *filter.Node
	Index  int

	removed *filter.Node
}

func (a *RemoveChild) Execute() error {
	if a.Parent == nil {
		return errors.New("command: RemoveChild requires a parent")
	}
	removed := a.Parent.RemoveChild(a.Index)
	if removed == nil {
		return fmt.Errorf("%w %d", errNoChild, a.Index)
	}
	a.removed = removed
	return nil
}

func (a *RemoveChild) Undo() error {
	if a.removed == nil {
		return errors.New("command: RemoveChild undo before execute")
	}
	a.Parent.InsertChild(a.Index, a.removed)
	return nil
}

// ToggleEnabled flips a node's enabled flag. Execute and Undo are the same
// involution.
type ToggleEnabled struct {
	Node *filter.Node
}

func (a *ToggleEnabled) Execute() error {
	if a.Node == nil {
		return errors.New("command: ToggleEnabled requires a node")
	}
	a.Node.Enabled = !a.Node.Enabled
	return nil
}

func (a *ToggleEnabled) Undo() error { return a.Execute() }

// SetValue changes the textual value of a Substring or Regex node.
type SetValue struct {
	Node *filter.Node
	Text string

	prev string
}

func (a *SetValue) Execute() error {
	if a.Node == nil {
		return errors.New("command: SetValue requires a node")
	}
	prev, err := a.Node.Value()
	if err != nil {
		return err
	}
	if err := a.Node.SetValue(a.Text); err != nil {
		return err
	}
	a.prev = prev
	return nil
}

func (a *SetValue) Undo() error {
	return a.Node.SetValue(a.prev)
}

// SetColorKey changes a node's highlight color key.
type SetColorKey struct {
	Node *filter.Node
	Key  string

	prev string
}

func (a *SetColorKey) Execute() error {
	if a.Node == nil {
		return errors.New("command: SetColorKey requires a node")
	}
	a.prev = a.Node.ColorKey
	a.Node.ColorKey = a.Key
	return nil
}

func (a *SetColorKey) Undo() error {
	a.Node.ColorKey = a.prev
	return nil
}
