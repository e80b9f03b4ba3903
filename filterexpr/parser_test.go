package filterexpr

import (
	"testing"

	"github.com/tailview/tailview/filter"
)

func TestParseMatching(t *testing.T) {
	tests := []struct {
		input string
		line  string
		want  bool
	}{
		{"ERROR", "2024 ERROR boom", true},
		{"ERROR", "2024 info ok", false},
		{"error", "2024 ERROR boom", true},
		{`"disk full"`, "warn: disk full on /var", true},
		{`"disk full"`, "warn: disk almost full", false},
		{"/conn.*reset/", "tcp conn 42 reset by peer", true},
		{"/conn.*reset/", "tcp conn 42 open", false},
		{"ERROR AND timeout", "ERROR dial timeout", true},
		{"ERROR AND timeout", "ERROR dial refused", false},
		{"ERROR OR WARN", "WARN slow query", true},
		{"ERROR OR WARN", "info fine", false},
		{"NOT debug", "ERROR boom", true},
		{"NOT debug", "debug trace enter", false},
		{"ERROR AND NOT /retry=[0-9]+/", "ERROR gave up", true},
		{"ERROR AND NOT /retry=[0-9]+/", "ERROR retry=3", false},
		{"(ERROR OR WARN) AND db", "WARN db pool low", true},
		{"(ERROR OR WARN) AND db", "WARN cache low", false},
		{"alpha OR beta AND gamma", "got beta then gamma", true},
		{"alpha OR beta AND gamma", "got beta only", false},
		{"alpha OR beta AND gamma", "got alpha only", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			root, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if got := root.IsMatch(tt.line); got != tt.want {
				t.Errorf("Parse(%q) on %q = %v, want %v", tt.input, tt.line, got, tt.want)
			}
		})
	}
}

func TestParseShapes(t *testing.T) {
	root, err := Parse("a AND b AND c")
	if err != nil {
		t.Fatal(err)
	}
	if root.Kind != filter.KindAnd || len(root.Children) != 3 {
		t.Errorf("chained AND = %s with %d children, want And with 3", root.Kind, len(root.Children))
	}

	root, err = Parse("NOT x")
	if err != nil {
		t.Fatal(err)
	}
	if root.Kind != filter.KindNor || len(root.Children) != 1 {
		t.Errorf("NOT = %s with %d children, want Nor with 1", root.Kind, len(root.Children))
	}

	root, err = Parse("word")
	if err != nil {
		t.Fatal(err)
	}
	if root.Kind != filter.KindSubstring || root.Text != "word" {
		t.Errorf("bare word parsed as %s %q", root.Kind, root.Text)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"(a OR b",
		"a AND",
		"AND a",
		"a b OR",
		"/[unclosed/",
		"NOT",
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", input)
			}
		})
	}
}

func TestParseEscapes(t *testing.T) {
	root, err := Parse(`"say \"hi\""`)
	if err != nil {
		t.Fatal(err)
	}
	if !root.IsMatch(`he did say "hi" twice`) {
		t.Errorf("escaped quote not matched, node text %q", root.Text)
	}

	root, err = Parse(`/a\/b/`)
	if err != nil {
		t.Fatal(err)
	}
	if !root.IsMatch("path a/b here") {
		t.Errorf("escaped slash regex not matched, pattern %q", root.Text)
	}
}

func TestParseTrailingToken(t *testing.T) {
	if _, err := Parse("a ) b"); err == nil {
		t.Error("stray closing parenthesis accepted")
	}
}
