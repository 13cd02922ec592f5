// Package evaluator computes the set of documents matching a parsed query
// against one index snapshot. Sets are roaring bitmaps; NOT is resolved
// as a difference inside an enclosing AND whenever possible and only falls
// back to a complement against the full document universe when it has to.
package evaluator

import (
	"context"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/parser"
)

// checkEvery bounds how much work happens between context checks in the
// loops whose cost grows with index size.
const checkEvery = 256

// Result is the outcome of evaluating a query.
type Result struct {
	Docs *roaring.Bitmap
	// Expansions maps each wildcard pattern in the query to the vocabulary
	// terms it matched.
	Expansions map[string][]string
}

// Evaluator is bound to one index snapshot and is not safe for concurrent
// use; create one per query.
type Evaluator struct {
	ix         *index.Index
	expansions map[string][]string
	steps      int
}

func New(ix *index.Index) *Evaluator {
	return &Evaluator{ix: ix, expansions: make(map[string][]string)}
}

// Evaluate returns the documents matching root. A nil root matches
// nothing. The only error is the context's, when it expires mid-way.
func (ev *Evaluator) Evaluate(ctx context.Context, root parser.Node) (*Result, error) {
	if root == nil {
		return &Result{Docs: roaring.New(), Expansions: ev.expansions}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluating query: %w", err)
	}
	docs, err := ev.eval(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("evaluating query: %w", err)
	}
	return &Result{Docs: docs, Expansions: ev.expansions}, nil
}

// Expand returns the vocabulary terms matched by a wildcard pattern,
// caching the answer for the rest of the evaluation.
func (ev *Evaluator) Expand(pattern string) []string {
	if terms, ok := ev.expansions[pattern]; ok {
		return terms
	}
	terms := ev.ix.TermsMatching(pattern)
	ev.expansions[pattern] = terms
	return terms
}

func (ev *Evaluator) eval(ctx context.Context, n parser.Node) (*roaring.Bitmap, error) {
	switch n := n.(type) {
	case *parser.Term:
		return ev.ix.DocSet(n.Term), nil
	case *parser.Wildcard:
		return ev.evalWildcard(ctx, n)
	case *parser.Phrase:
		return ev.evalPhrase(ctx, n)
	case *parser.And:
		return ev.evalAnd(ctx, n)
	case *parser.Or:
		return ev.evalOr(ctx, n)
	case *parser.Not:
		excluded, err := ev.eval(ctx, n.Child)
		if err != nil {
			return nil, err
		}
		return ev.complement(excluded), nil
	default:
		return roaring.New(), nil
	}
}

func (ev *Evaluator) evalAnd(ctx context.Context, n *parser.And) (*roaring.Bitmap, error) {
	leftNot, leftIsNot := n.Left.(*parser.Not)
	rightNot, rightIsNot := n.Right.(*parser.Not)

	switch {
	case leftIsNot && rightIsNot:
		// NOT a AND NOT b == NOT (a OR b)
		a, err := ev.eval(ctx, leftNot.Child)
		if err != nil {
			return nil, err
		}
		b, err := ev.eval(ctx, rightNot.Child)
		if err != nil {
			return nil, err
		}
		a.Or(b)
		return ev.complement(a), nil
	case rightIsNot:
		return ev.difference(ctx, n.Left, rightNot.Child)
	case leftIsNot:
		return ev.difference(ctx, n.Right, leftNot.Child)
	}

	left, err := ev.eval(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	if left.IsEmpty() {
		return left, nil
	}
	right, err := ev.eval(ctx, n.Right)
	if err != nil {
		return nil, err
	}
	left.And(right)
	return left, nil
}

// difference evaluates keep AND NOT drop without materialising NOT drop.
func (ev *Evaluator) difference(ctx context.Context, keep, drop parser.Node) (*roaring.Bitmap, error) {
	kept, err := ev.eval(ctx, keep)
	if err != nil {
		return nil, err
	}
	if kept.IsEmpty() {
		return kept, nil
	}
	dropped, err := ev.eval(ctx, drop)
	if err != nil {
		return nil, err
	}
	kept.AndNot(dropped)
	return kept, nil
}

func (ev *Evaluator) evalOr(ctx context.Context, n *parser.Or) (*roaring.Bitmap, error) {
	left, err := ev.eval(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(ctx, n.Right)
	if err != nil {
		return nil, err
	}
	left.Or(right)
	return left, nil
}

func (ev *Evaluator) complement(excluded *roaring.Bitmap) *roaring.Bitmap {
	all := ev.ix.Universe()
	all.AndNot(excluded)
	return all
}

func (ev *Evaluator) evalWildcard(ctx context.Context, n *parser.Wildcard) (*roaring.Bitmap, error) {
	if err := ev.tick(ctx); err != nil {
		return nil, err
	}
	terms := ev.Expand(n.Pattern)
	if len(terms) <= checkEvery {
		return ev.ix.UnionDocSets(terms), nil
	}
	result := roaring.New()
	for start := 0; start < len(terms); start += checkEvery {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+checkEvery, len(terms))
		result.Or(ev.ix.UnionDocSets(terms[start:end]))
	}
	return result, nil
}

// evalPhrase intersects the terms' document sets first and only walks
// positions for the surviving candidates.
func (ev *Evaluator) evalPhrase(ctx context.Context, n *parser.Phrase) (*roaring.Bitmap, error) {
	candidates := ev.ix.IntersectDocSets(n.Terms)
	if candidates.IsEmpty() {
		return candidates, nil
	}
	result := roaring.New()
	positions := make([][]int, len(n.Terms))
	it := candidates.Iterator()
	for it.HasNext() {
		if err := ev.tick(ctx); err != nil {
			return nil, err
		}
		id := index.DocID(it.Next())
		for i, term := range n.Terms {
			p, _ := ev.ix.Posting(term, id)
			positions[i] = p.Positions
		}
		if PhraseStart(positions) >= 0 {
			result.Add(uint32(id))
		}
	}
	return result, nil
}

// PhraseStart returns the first position p such that positions[i] contains
// p+i for every i, or -1 when the terms never occur consecutively. Each
// positions slice must be ascending.
func PhraseStart(positions [][]int) int {
	if len(positions) == 0 {
		return -1
	}
	for _, p := range positions[0] {
		match := true
		for i := 1; i < len(positions); i++ {
			want := p + i
			j := sort.SearchInts(positions[i], want)
			if j == len(positions[i]) || positions[i][j] != want {
				match = false
				break
			}
		}
		if match {
			return p
		}
	}
	return -1
}

func (ev *Evaluator) tick(ctx context.Context) error {
	ev.steps++
	if ev.steps%checkEvery == 0 {
		return ctx.Err()
	}
	return nil
}
