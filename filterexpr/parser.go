package filterexpr

import (
	"fmt"

	"github.com/tailview/tailview/filter"
)

// Parser parses filter expressions into filter trees.
//
// Grammar, loosest binding first:
//
//	expr    = term { "OR" term }
//	term    = factor { "AND" factor }
//	factor  = "NOT" factor | "(" expr ")" | word | string | /regex/
//
// Bare words and quoted strings become substring nodes, /.../ literals become
// regex nodes and NOT becomes a single-child NOR node.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
}

// Parse parses the input and returns the root of the resulting tree. Matching
// is case-insensitive, mirroring the default for hand-built nodes.
func Parse(input string) (*filter.Node, error) {
	p := &Parser{lexer: NewLexer(input)}
	p.nextToken()
	p.nextToken()

	if p.curToken.Type == TokenEOF {
		return nil, fmt.Errorf("empty expression")
	}

	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.curToken.Type != TokenEOF {
		return nil, fmt.Errorf("unexpected token %q", p.curToken.Value)
	}
	return root, nil
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

func (p *Parser) parseExpr() (*filter.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if p.curToken.Type != TokenOr {
		return left, nil
	}

	children := []*filter.Node{left}
	for p.curToken.Type == TokenOr {
		p.nextToken()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	return filter.NewOr(children...), nil
}

func (p *Parser) parseTerm() (*filter.Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	if p.curToken.Type != TokenAnd {
		return left, nil
	}

	children := []*filter.Node{left}
	for p.curToken.Type == TokenAnd {
		p.nextToken()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	return filter.NewAnd(children...), nil
}

func (p *Parser) parseFactor() (*filter.Node, error) {
	switch p.curToken.Type {
	case TokenNot:
		p.nextToken()
		child, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return filter.NewNor(child), nil

	case TokenLParen:
		p.nextToken()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.curToken.Type != TokenRParen {
			return nil, fmt.Errorf("expected closing parenthesis, got %q", p.curToken.Value)
		}
		p.nextToken()
		return inner, nil

	case TokenWord, TokenString:
		n := filter.NewSubstring(p.curToken.Value)
		p.nextToken()
		return n, nil

	case TokenRegex:
		n := filter.NewRegex(p.curToken.Value, false)
		if err := n.PatternError(); err != nil {
			return nil, fmt.Errorf("invalid regex /%s/: %w", n.Text, err)
		}
		p.nextToken()
		return n, nil

	case TokenEOF:
		return nil, fmt.Errorf("unexpected end of expression")

	default:
		return nil, fmt.Errorf("unexpected token %q", p.curToken.Value)
	}
}
