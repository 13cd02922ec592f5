package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokPhrase
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind   tokenKind
	text   string
	offset int
}

// startsOperand reports whether the token can begin an operand, which is
// when two adjacent operands are joined by an implicit AND.
func (t token) startsOperand() bool {
	switch t.kind {
	case tokWord, tokPhrase, tokNot, tokLParen:
		return true
	}
	return false
}

// lex splits a query into tokens. Quoted text is one token and never
// treated as an operator.
func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", offset: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", offset: i})
			i++
		case r == '"':
			end := strings.IndexByte(input[i+1:], '"')
			if end < 0 {
				return nil, &QuerySyntaxError{
					Fragment: input[i:],
					Offset:   i,
					Reason:   "unterminated quote",
				}
			}
			tokens = append(tokens, token{kind: tokPhrase, text: input[i+1 : i+1+end], offset: i})
			i += end + 2
		default:
			start := i
			for i < len(input) {
				r, size := utf8.DecodeRuneInString(input[i:])
				if unicode.IsSpace(r) || r == '(' || r == ')' || r == '"' {
					break
				}
				i += size
			}
			word := input[start:i]
			kind := tokWord
			switch strings.ToUpper(word) {
			case "AND":
				kind = tokAnd
			case "OR":
				kind = tokOr
			case "NOT":
				kind = tokNot
			}
			tokens = append(tokens, token{kind: kind, text: word, offset: start})
		}
	}
	tokens = append(tokens, token{kind: tokEOF, offset: len(input)})
	return tokens, nil
}
