// Package engine implements the full-scan filtering pass: evaluate a predicate
// tree over a line store snapshot and expand context windows around matches.
package engine

import (
	"fmt"

	"github.com/tailview/tailview/filter"
	"github.com/tailview/tailview/logstore"
)

// FilteredLine is one line of engine output. Context is true when the line is
// included only because it lies within the context window of a direct match.
type FilteredLine struct {
	Num     uint64
	Text    string
	Context bool
}

// Options controls a Scan pass.
type Options struct {
	// ContextLines is the number of lines included on each side of a direct
	// match. Zero means direct matches only.
	ContextLines int

	// OnLineError receives evaluation failures for individual lines. A failed
	// line is treated as non-matching; the pass continues.
	OnLineError func(num uint64, err error)
}

// Scan runs the predicate over every line in order and returns the included
// lines with context flags. A nil or True root includes every line as a
// direct match.
//
// The pass is linear: one predicate evaluation per line plus two sweeps to
// resolve context windows, regardless of how many matches overlap.
func Scan(lines []logstore.Line, root *filter.Node, opts Options) []FilteredLine {
	n := len(lines)
	if n == 0 {
		return nil
	}

	if root == nil || (root.Kind == filter.KindTrue && root.Enabled) {
		out := make([]FilteredLine, n)
		for i, line := range lines {
			out[i] = FilteredLine{Num: line.Num, Text: line.Text}
		}
		return out
	}

	matched := make([]bool, n)
	for i := range lines {
		matched[i] = MatchLine(root, lines[i], opts.OnLineError)
	}

	ctx := opts.ContextLines
	if ctx < 0 {
		ctx = 0
	}

	if ctx == 0 {
		var out []FilteredLine
		for i, line := range lines {
			if matched[i] {
				out = append(out, FilteredLine{Num: line.Num, Text: line.Text})
			}
		}
		return out
	}

	// dist[i] holds the distance from line i to the nearest direct match,
	// resolved with a forward and a backward sweep.
	const far = int(^uint(0) >> 1)
	dist := make([]int, n)
	last := -1
	for i := 0; i < n; i++ {
		if matched[i] {
			last = i
		}
		if last < 0 {
			dist[i] = far
		} else {
			dist[i] = i - last
		}
	}
	next := -1
	for i := n - 1; i >= 0; i-- {
		if matched[i] {
			next = i
		}
		if next >= 0 && next-i < dist[i] {
			dist[i] = next - i
		}
	}

	var out []FilteredLine
	for i, line := range lines {
		if dist[i] > ctx {
			continue
		}
		out = append(out, FilteredLine{Num: line.Num, Text: line.Text, Context: !matched[i]})
	}
	return out
}

// MatchLine evaluates root against a single line, isolating evaluation
// failures: a panic during evaluation reports the line through onErr and
// counts as a non-match.
func MatchLine(root *filter.Node, line logstore.Line, onErr func(uint64, error)) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if onErr != nil {
				onErr(line.Num, fmt.Errorf("engine: evaluation failed for line %d: %v", line.Num, r))
			}
		}
	}()
	return root.IsMatch(line.Text)
}
