// Package profile persists named filter profiles: a predicate tree plus the
// context-line setting, keyed by a stable ID.
package profile

import (
	"fmt"

	"github.com/valyala/fastjson"

	"github.com/tailview/tailview/filter"
)

// nodeDoc is the serialized form of one tree node.
type nodeDoc struct {
	Kind          string    `json:"kind"`
	Enabled       bool      `json:"enabled"`
	Color         string    `json:"color"`
	Value         string    `json:"value,omitempty"`
	CaseSensitive bool      `json:"case_sensitive,omitempty"`
	Children      []nodeDoc `json:"children,omitempty"`
}

// encodeNode converts a tree to its serialized form, enumerating the closed
// variant set explicitly.
func encodeNode(n *filter.Node) *nodeDoc {
	if n == nil {
		return nil
	}
	doc := &nodeDoc{
		Kind:    n.Kind.String(),
		Enabled: n.Enabled,
		Color:   n.ColorKey,
	}
	switch n.Kind {
	case filter.KindSubstring:
		doc.Value = n.Text
	case filter.KindRegex:
		doc.Value = n.Text
		doc.CaseSensitive = n.CaseSensitive
	case filter.KindAnd, filter.KindOr, filter.KindNor:
		for _, c := range n.Children {
			if child := encodeNode(c); child != nil {
				doc.Children = append(doc.Children, *child)
			}
		}
	case filter.KindTrue:
		// No payload.
	}
	return doc
}

// decodeNode rebuilds a tree from a parsed JSON value. Fields missing from
// older saved data fall back to their defaults: enabled true, color
// "Default".
func decodeNode(v *fastjson.Value) (*filter.Node, error) {
	if v == nil {
		return nil, nil
	}
	kindStr := string(v.GetStringBytes("kind"))
	kind, err := filter.KindFromString(kindStr)
	if err != nil {
		return nil, err
	}

	var n *filter.Node
	switch kind {
	case filter.KindSubstring:
		n = filter.NewSubstring(string(v.GetStringBytes("value")))
	case filter.KindRegex:
		n = filter.NewRegex(string(v.GetStringBytes("value")), v.GetBool("case_sensitive"))
	case filter.KindAnd:
		n = filter.NewAnd()
	case filter.KindOr:
		n = filter.NewOr()
	case filter.KindNor:
		n = filter.NewNor()
	case filter.KindTrue:
		n = filter.NewTrue()
	}

	if v.Exists("enabled") {
		n.Enabled = v.GetBool("enabled")
	}
	if v.Exists("color") {
		n.ColorKey = string(v.GetStringBytes("color"))
	}
	if n.ColorKey == "" {
		n.ColorKey = filter.DefaultColorKey
	}

	for i, cv := range v.GetArray("children") {
		child, err := decodeNode(cv)
		if err != nil {
			return nil, fmt.Errorf("profile: child %d: %w", i, err)
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}
