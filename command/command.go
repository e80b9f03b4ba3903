// Package command records filter-tree mutations as reversible actions with
// undo/redo stacks. Every executed, undone, or redone action triggers exactly
// one re-filter through the registered notifier.
package command

import (
	"errors"
)

// ErrNothingToUndo is reported by Undo on an empty undo stack.
var ErrNothingToUndo = errors.New("command: nothing to undo")

// ErrNothingToRedo is reported by Redo on an empty redo stack.
var ErrNothingToRedo = errors.New("command: nothing to redo")

// Action is a reversible tree mutation. Execute and Undo must be symmetric:
// Undo restores the exact state from before Execute.
type Action interface {
	Execute() error
	Undo() error
}

// Notifier receives exactly one call after each successful Execute, Undo, or
// Redo, and owns triggering the re-filter pass.
type Notifier interface {
	FilterTreeChanged()
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func()

func (f NotifierFunc) FilterTreeChanged() { f() }

// Executor maintains the undo and redo stacks.
type Executor struct {
	undo     []Action
	redo     []Action
	notifier Notifier
}

// NewExecutor creates an Executor reporting tree changes to notifier, which
// may be nil.
func NewExecutor(notifier Notifier) *Executor {
	return &Executor{notifier: notifier}
}

// Execute runs the action, pushes it onto the undo stack, and clears the redo
// stack. A failed action changes neither stack and triggers no re-filter.
func (e *Executor) Execute(a Action) error {
	if err := a.Execute(); err != nil {
		return err
	}
	e.undo = append(e.undo, a)
	e.redo = nil
	e.notify()
	return nil
}

// Undo reverses the most recent action and moves it to the redo stack.
func (e *Executor) Undo() error {
	if len(e.undo) == 0 {
		return ErrNothingToUndo
	}
	a := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	if err := a.Undo(); err != nil {
		return err
	}
	e.redo = append(e.redo, a)
	e.notify()
	return nil
}

// Redo re-applies the most recently undone action.
func (e *Executor) Redo() error {
	if len(e.redo) == 0 {
		return ErrNothingToRedo
	}
	a := e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
	if err := a.Execute(); err != nil {
		return err
	}
	e.undo = append(e.undo, a)
	e.notify()
	return nil
}

// CanUndo reports whether the undo stack is non-empty.
func (e *Executor) CanUndo() bool { return len(e.undo) > 0 }

// CanRedo reports whether the redo stack is non-empty.
func (e *Executor) CanRedo() bool { return len(e.redo) > 0 }

// Clear drops both stacks without touching the tree. Use it when the active
// profile is swapped out from under the executor.
func (e *Executor) Clear() {
	e.undo = nil
	e.redo = nil
}

func (e *Executor) notify() {
	if e.notifier != nil {
		e.notifier.FilterTreeChanged()
	}
}
