// Package filterexpr parses a small boolean query language into filter trees,
// so a predicate like `ERROR AND NOT /conn.*reset/` can be typed instead of
// assembled node by node.
package filterexpr

import (
	"strings"
	"unicode"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenWord
	TokenString
	TokenRegex
	TokenLParen
	TokenRParen
	TokenAnd
	TokenOr
	TokenNot
)

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
}

// Lexer tokenizes filter expression input.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF}
	}

	switch l.input[l.pos] {
	case '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "("}
	case ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")"}
	case '"':
		return l.readString()
	case '/':
		return l.readRegex()
	}

	return l.readWord()
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

// readString reads a double-quoted string, honoring backslash escapes for the
// quote character.
func (l *Lexer) readString() Token {
	l.pos++ // skip opening quote
	var sb strings.Builder
	for l.pos < len(l.input) && l.input[l.pos] != '"' {
		if l.input[l.pos] == '\\' && l.pos+1 < len(l.input) {
			l.pos++
		}
		sb.WriteByte(l.input[l.pos])
		l.pos++
	}
	if l.pos < len(l.input) {
		l.pos++ // skip closing quote
	}
	return Token{Type: TokenString, Value: sb.String()}
}

// readRegex reads a /pattern/ literal. Escaped slashes stay part of the
// pattern.
func (l *Lexer) readRegex() Token {
	l.pos++ // skip opening slash
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '/' {
		if l.input[l.pos] == '\\' && l.pos+1 < len(l.input) {
			l.pos++
		}
		l.pos++
	}
	value := l.input[start:l.pos]
	if l.pos < len(l.input) {
		l.pos++ // skip closing slash
	}
	return Token{Type: TokenRegex, Value: value}
}

func (l *Lexer) readWord() Token {
	start := l.pos
	for l.pos < len(l.input) && !isWordBreak(l.input[l.pos]) {
		l.pos++
	}
	value := l.input[start:l.pos]
	if l.pos == start {
		// Lone unreadable byte; consume it so the lexer always advances.
		l.pos++
		return l.NextToken()
	}

	switch strings.ToUpper(value) {
	case "AND":
		return Token{Type: TokenAnd, Value: "AND"}
	case "OR":
		return Token{Type: TokenOr, Value: "OR"}
	case "NOT":
		return Token{Type: TokenNot, Value: "NOT"}
	}
	return Token{Type: TokenWord, Value: value}
}

func isWordBreak(ch byte) bool {
	switch ch {
	case '(', ')', '"', '/':
		return true
	}
	return unicode.IsSpace(rune(ch))
}
