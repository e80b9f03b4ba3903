// Package filter implements the composable boolean predicate tree applied to
// individual log lines. The variant set is closed: every operation switches
// over Kind rather than dispatching through an open interface.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultColorKey is the highlight color assigned to new nodes.
const DefaultColorKey = "Default"

// ErrUnsupported is returned when an operation does not apply to the node's
// kind, e.g. setting a textual value on a composite.
var ErrUnsupported = errors.New("filter: operation not supported for this node kind")

// Kind identifies the variant of a Node.
type Kind int

const (
	KindSubstring Kind = iota
	KindRegex
	KindAnd
	KindOr
	KindNor
	KindTrue
)

// String returns the canonical name of the kind, used in serialized trees.
func (k Kind) String() string {
	switch k {
	case KindSubstring:
		return "substring"
	case KindRegex:
		return "regex"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindNor:
		return "nor"
	case KindTrue:
		return "true"
	default:
		return "unknown"
	}
}

// KindFromString parses a serialized kind name.
func KindFromString(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "substring":
		return KindSubstring, nil
	case "regex":
		return KindRegex, nil
	case "and":
		return KindAnd, nil
	case "or":
		return KindOr, nil
	case "nor":
		return KindNor, nil
	case "true":
		return KindTrue, nil
	default:
		return 0, fmt.Errorf("filter: unknown kind %q", s)
	}
}

// Node is one predicate in the tree. Composite kinds (And, Or, Nor) own their
// Children; leaf kinds ignore them. There are no parent pointers; use
// FindParent for upward lookup.
type Node struct {
	Kind          Kind
	Enabled       bool
	ColorKey      string
	Text          string // Substring text or regex pattern
	CaseSensitive bool   // Regex only
	Children      []*Node

	re         *regexp.Regexp // nil when pattern is empty or invalid
	patternErr error
}

// NewSubstring creates a case-insensitive substring predicate. Empty text
// matches everything.
func NewSubstring(text string) *Node {
	return &Node{Kind: KindSubstring, Enabled: true, ColorKey: DefaultColorKey, Text: text}
}

// NewRegex creates a regex predicate. An empty or invalid pattern matches
// nothing until corrected.
func NewRegex(pattern string, caseSensitive bool) *Node {
	n := &Node{Kind: KindRegex, Enabled: true, ColorKey: DefaultColorKey, Text: pattern, CaseSensitive: caseSensitive}
	n.compile()
	return n
}

// NewAnd creates an And composite over the given children.
func NewAnd(children ...*Node) *Node {
	return &Node{Kind: KindAnd, Enabled: true, ColorKey: DefaultColorKey, Children: children}
}

// NewOr creates an Or composite over the given children.
func NewOr(children ...*Node) *Node {
	return &Node{Kind: KindOr, Enabled: true, ColorKey: DefaultColorKey, Children: children}
}

// NewNor creates a Nor composite over the given children.
func NewNor(children ...*Node) *Node {
	return &Node{Kind: KindNor, Enabled: true, ColorKey: DefaultColorKey, Children: children}
}

// NewTrue creates a predicate that matches every line.
func NewTrue() *Node {
	return &Node{Kind: KindTrue, Enabled: true, ColorKey: DefaultColorKey}
}

func (n *Node) compile() {
	n.re = nil
	n.patternErr = nil
	if n.Text == "" {
		// Empty regex pattern matches nothing. This differs from Substring,
		// where an empty value is neutral.
		return
	}
	pattern := n.Text
	if !n.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		n.patternErr = err
		return
	}
	n.re = re
}

// PatternError reports why a Regex node currently matches nothing, or nil if
// the pattern compiled (or the node is not a Regex).
func (n *Node) PatternError() error {
	return n.patternErr
}

// IsMatch evaluates the predicate against one line of text.
//
// A disabled node is neutral and always reports true. Composite kinds
// quantify over their enabled children only and are vacuously true when there
// are none; this includes Or, whose empty form matching everything mirrors
// the historical behavior consumers depend on.
func (n *Node) IsMatch(line string) bool {
	if n == nil {
		return true
	}
	if !n.Enabled {
		return true
	}

	switch n.Kind {
	case KindSubstring:
		if n.Text == "" {
			return true
		}
		return strings.Contains(strings.ToLower(line), strings.ToLower(n.Text))

	case KindRegex:
		if n.re == nil {
			return false // Fail closed on empty or invalid pattern
		}
		return n.re.MatchString(line)

	case KindAnd:
		for _, c := range n.Children {
			if !c.Enabled {
				continue
			}
			if !c.IsMatch(line) {
				return false
			}
		}
		return true

	case KindOr:
		any := false
		for _, c := range n.Children {
			if !c.Enabled {
				continue
			}
			any = true
			if c.IsMatch(line) {
				return true
			}
		}
		return !any // Vacuously true with no enabled children

	case KindNor:
		for _, c := range n.Children {
			if !c.Enabled {
				continue
			}
			if c.IsMatch(line) {
				return false
			}
		}
		return true

	case KindTrue:
		return true

	default:
		return false
	}
}

// Value returns the textual value of a Substring or Regex node.
func (n *Node) Value() (string, error) {
	switch n.Kind {
	case KindSubstring, KindRegex:
		return n.Text, nil
	default:
		return "", ErrUnsupported
	}
}

// SetValue updates the textual value of a Substring or Regex node. A Regex
// node recompiles its pattern; compilation failure leaves the node in place,
// matching nothing until the pattern is corrected.
func (n *Node) SetValue(text string) error {
	switch n.Kind {
	case KindSubstring:
		n.Text = text
		return nil
	case KindRegex:
		n.Text = text
		n.compile()
		return nil
	default:
		return ErrUnsupported
	}
}

// SetCaseSensitive updates the case sensitivity of a Regex node.
func (n *Node) SetCaseSensitive(cs bool) error {
	if n.Kind != KindRegex {
		return ErrUnsupported
	}
	n.CaseSensitive = cs
	n.compile()
	return nil
}

// DisplayText returns the canonical one-line rendering used by highlighting
// consumers.
func (n *Node) DisplayText() string {
	switch n.Kind {
	case KindSubstring:
		return fmt.Sprintf("%q", n.Text)
	case KindRegex:
		return "/" + n.Text + "/"
	case KindAnd:
		return "∧"
	case KindOr:
		return "∨"
	case KindNor:
		return "⊽"
	case KindTrue:
		return "⊤"
	default:
		return "?"
	}
}

// InsertChild inserts child at the given index, clamped to [0, len].
func (n *Node) InsertChild(index int, child *Node) {
	if index < 0 {
		index = 0
	}
	if index > len(n.Children) {
		index = len(n.Children)
	}
	n.Children = append(n.Children, nil)
	copy(n.Children[index+1:], n.Children[index:])
	n.Children[index] = child
}

// RemoveChild removes and returns the child at index, or nil if out of range.
func (n *Node) RemoveChild(index int) *Node {
	if index < 0 || index >= len(n.Children) {
		return nil
	}
	child := n.Children[index]
	n.Children = append(n.Children[:index], n.Children[index+1:]...)
	return child
}

// IndexOf returns the index of child in n's children, or -1.
func (n *Node) IndexOf(child *Node) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// FindParent walks the tree rooted at root and returns the parent of target
// together with target's child index. Returns (nil, -1) if target is root or
// not in the tree.
func FindParent(root, target *Node) (*Node, int) {
	if root == nil || target == nil || root == target {
		return nil, -1
	}
	for i, c := range root.Children {
		if c == target {
			return root, i
		}
		if p, idx := FindParent(c, target); p != nil {
			return p, idx
		}
	}
	return nil, -1
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := &Node{
		Kind:          n.Kind,
		Enabled:       n.Enabled,
		ColorKey:      n.ColorKey,
		Text:          n.Text,
		CaseSensitive: n.CaseSensitive,
	}
	if n.Kind == KindRegex {
		cp.compile()
	}
	if len(n.Children) > 0 {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return cp
}
