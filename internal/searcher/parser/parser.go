// Package parser turns query text into an AST of Term, Phrase, Wildcard,
// And, Or and Not nodes.
//
// Grammar, loosest binding first:
//
//	or      := and ("OR" and)*
//	and     := unary (["AND"] unary)*
//	unary   := "NOT" unary | primary
//	primary := "(" or ")" | '"' phrase '"' | word
//
// Keywords are case-insensitive and only recognised outside quotes, so
// `"and"` searches for the word. Operands are analysed with the same
// analyzer as documents; an operand that analyses to nothing drops out of
// the tree and is reported in Query.Dropped.
package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/errors"
)

// QuerySyntaxError describes malformed query text. Offset is the byte
// offset of Fragment in the query.
type QuerySyntaxError struct {
	Fragment string
	Offset   int
	Reason   string
}

func (e *QuerySyntaxError) Error() string {
	return fmt.Sprintf("query syntax error at offset %d near %q: %s", e.Offset, e.Fragment, e.Reason)
}

func (e *QuerySyntaxError) Unwrap() error {
	return apperrors.ErrQuerySyntax
}

// Query is a parsed query. Root is nil when nothing searchable is left,
// in which case the query matches no documents.
type Query struct {
	Raw     string
	Root    Node
	Dropped []string
}

// String is the canonical form of the query. Two queries with equal
// canonical forms always match the same documents.
func (q *Query) String() string {
	if q.Root == nil {
		return ""
	}
	return q.Root.String()
}

func (q *Query) Empty() bool {
	return q.Root == nil
}

// Parse parses input, analysing operands with analyzer. A nil analyzer
// selects tokenizer.Default().
func Parse(input string, analyzer *tokenizer.Analyzer) (*Query, error) {
	if analyzer == nil {
		analyzer = tokenizer.Default()
	}
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{input: input, tokens: tokens, analyzer: analyzer}
	q := &Query{Raw: input}
	if p.peek().kind == tokEOF {
		return q, nil
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind == tokRParen {
		return nil, p.errorAt(tok, "unbalanced parenthesis")
	} else if tok.kind != tokEOF {
		return nil, p.errorAt(tok, "unexpected token")
	}
	q.Root = root
	q.Dropped = p.dropped
	return q, nil
}

type parser struct {
	input    string
	tokens   []token
	pos      int
	analyzer *tokenizer.Analyzer
	dropped  []string
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		op := p.next()
		if !p.peek().startsOperand() {
			return nil, p.danglingOperator(op)
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = combine(left, right, func(l, r Node) Node { return &Or{Left: l, Right: r} })
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch {
		case tok.kind == tokAnd:
			op := p.next()
			if !p.peek().startsOperand() {
				return nil, p.danglingOperator(op)
			}
		case tok.startsOperand():
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = combine(left, right, func(l, r Node) Node { return &And{Left: l, Right: r} })
	}
}

func (p *parser) parseUnary() (Node, error) {
	tok := p.peek()
	if tok.kind != tokNot {
		return p.parsePrimary()
	}
	op := p.next()
	if !p.peek().startsOperand() {
		return nil, p.danglingOperator(op)
	}
	child, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, nil
	}
	return &Not{Child: child}, nil
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokLParen:
		if p.peek().kind == tokRParen {
			return nil, p.errorAt(tok, "empty group")
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, p.errorAt(tok, "unbalanced parenthesis")
		}
		p.next()
		return inner, nil
	case tokPhrase:
		return p.phrase(tok), nil
	case tokWord:
		return p.word(tok), nil
	case tokRParen:
		return nil, p.errorAt(tok, "unbalanced parenthesis")
	case tokEOF:
		return nil, p.errorAt(tok, "expected a search term")
	default:
		return nil, p.errorAt(tok, "operator without left operand")
	}
}

func (p *parser) phrase(tok token) Node {
	terms := p.analyzer.Analyze(tok.text).Terms()
	return p.leaf(terms, `"`+tok.text+`"`)
}

func (p *parser) word(tok token) Node {
	if strings.ContainsRune(tok.text, '*') {
		return &Wildcard{Pattern: normalizePattern(tok.text)}
	}
	return p.leaf(p.analyzer.AnalyzeTerm(tok.text), tok.text)
}

func (p *parser) leaf(terms []string, raw string) Node {
	switch len(terms) {
	case 0:
		p.dropped = append(p.dropped, raw)
		return nil
	case 1:
		return &Term{Term: terms[0]}
	default:
		return &Phrase{Terms: terms}
	}
}

func (p *parser) danglingOperator(op token) error {
	return p.errorAt(op, "operator without right operand")
}

func (p *parser) errorAt(tok token, reason string) error {
	fragment := tok.text
	if tok.kind == tokEOF {
		fragment = p.input[max(0, len(p.input)-20):]
	}
	if tok.kind == tokPhrase {
		fragment = `"` + tok.text + `"`
	}
	return &QuerySyntaxError{Fragment: fragment, Offset: tok.offset, Reason: reason}
}

// combine joins two operands, letting a dropped (nil) side reduce to the
// other.
func combine(left, right Node, join func(l, r Node) Node) Node {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	default:
		return join(left, right)
	}
}

// normalizePattern lower-cases a wildcard operand, keeps only letters,
// digits and '*', and collapses runs of '*'.
func normalizePattern(raw string) string {
	var b strings.Builder
	lastStar := false
	for _, r := range strings.ToLower(raw) {
		switch {
		case r == '*':
			if !lastStar {
				b.WriteRune(r)
			}
			lastStar = true
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastStar = false
		}
	}
	return b.String()
}
