package parser

import (
	"strconv"
	"strings"
)

// Node is one of Term, Phrase, Wildcard, And, Or or Not. The set is
// closed; code that switches on node kinds handles all six.
type Node interface {
	String() string
	node()
}

// Term matches documents containing one analysed term.
type Term struct {
	Term string
}

// Phrase matches documents containing Terms at consecutive positions.
// It always holds at least two terms.
type Phrase struct {
	Terms []string
}

// Wildcard matches documents containing any vocabulary term that matches
// Pattern, where '*' stands for any run of characters.
type Wildcard struct {
	Pattern string
}

type And struct {
	Left, Right Node
}

type Or struct {
	Left, Right Node
}

type Not struct {
	Child Node
}

func (*Term) node()     {}
func (*Phrase) node()   {}
func (*Wildcard) node() {}
func (*And) node()      {}
func (*Or) node()       {}
func (*Not) node()      {}

func (n *Term) String() string {
	if isKeyword(n.Term) {
		return strconv.Quote(n.Term)
	}
	return n.Term
}

func (n *Phrase) String() string {
	return strconv.Quote(strings.Join(n.Terms, " "))
}

func (n *Wildcard) String() string { return n.Pattern }

func (n *And) String() string {
	return "(" + n.Left.String() + " AND " + n.Right.String() + ")"
}

func (n *Or) String() string {
	return "(" + n.Left.String() + " OR " + n.Right.String() + ")"
}

func (n *Not) String() string {
	return "NOT " + n.Child.String()
}

// Leaf is a term-bearing node together with whether any Not encloses it.
type Leaf struct {
	Node    Node
	Negated bool
}

// Leaves returns the Term, Phrase and Wildcard nodes of the tree in
// left-to-right order.
func Leaves(root Node) []Leaf {
	var out []Leaf
	var walk func(n Node, negated bool)
	walk = func(n Node, negated bool) {
		switch n := n.(type) {
		case nil:
		case *Term, *Phrase, *Wildcard:
			out = append(out, Leaf{Node: n, Negated: negated})
		case *And:
			walk(n.Left, negated)
			walk(n.Right, negated)
		case *Or:
			walk(n.Left, negated)
			walk(n.Right, negated)
		case *Not:
			walk(n.Child, true)
		}
	}
	walk(root, false)
	return out
}

func isKeyword(word string) bool {
	switch strings.ToUpper(word) {
	case "AND", "OR", "NOT":
		return true
	}
	return false
}
