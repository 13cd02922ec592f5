// Package index implements the positional inverted index: term -> document ->
// (frequency, positions), plus the document count N and per-document token
// counts used for scoring.
//
// An Index is not synchronised. It is built by a single writer and then
// treated as read-only; any number of goroutines may read it concurrently as
// long as nobody writes. Writers that need to keep readers running take a
// Clone, mutate the clone, and publish it in place of the original.
package index

import (
	"cmp"
	"iter"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/tokenizer"
)

type Index struct {
	analyzer *tokenizer.Analyzer
	terms    map[string]*postingList
	// owned holds the terms whose posting list this Index may mutate in
	// place. Every other list is shared with a parent or child clone.
	owned       map[string]struct{}
	docLens     map[DocID]int
	universe    *roaring.Bitmap
	totalTokens int64

	vocabOnce sync.Once
	vocab     []string
}

// New creates an empty index that analyses documents with analyzer. A nil
// analyzer selects tokenizer.Default().
func New(analyzer *tokenizer.Analyzer) *Index {
	if analyzer == nil {
		analyzer = tokenizer.Default()
	}
	return &Index{
		analyzer: analyzer,
		terms:    make(map[string]*postingList),
		owned:    make(map[string]struct{}),
		docLens:  make(map[DocID]int),
		universe: roaring.New(),
	}
}

// Analyzer returns the analyzer documents were indexed with. Queries against
// this index must be analysed with the same one.
func (ix *Index) Analyzer() *tokenizer.Analyzer {
	return ix.analyzer
}

// AddDocument analyses text and records a posting for every surviving term.
// N grows by one even when text produces no terms. It returns the number of
// terms indexed.
func (ix *Index) AddDocument(id DocID, text string) (int, error) {
	if ix.universe.Contains(uint32(id)) {
		return 0, &DuplicateDocumentError{ID: id}
	}

	termData := make(map[string]*Posting)
	count := 0
	for tok := range ix.analyzer.Analyze(text) {
		p, exists := termData[tok.Term]
		if !exists {
			p = &Posting{
				DocID:     id,
				Positions: make([]int, 0, 4),
			}
			termData[tok.Term] = p
		}
		p.Frequency++
		p.Positions = append(p.Positions, tok.Position)
		count++
	}

	for term, posting := range termData {
		ix.writable(term).add(posting)
	}
	ix.docLens[id] = count
	ix.totalTokens += int64(count)
	ix.universe.Add(uint32(id))
	return count, nil
}

// writable returns a posting list for term that may be mutated, copying a
// shared list first.
func (ix *Index) writable(term string) *postingList {
	pl, exists := ix.terms[term]
	if !exists {
		pl = newPostingList()
		ix.terms[term] = pl
		ix.owned[term] = struct{}{}
		ix.resetVocabulary()
		return pl
	}
	if _, mine := ix.owned[term]; !mine {
		pl = pl.clone()
		ix.terms[term] = pl
		ix.owned[term] = struct{}{}
	}
	return pl
}

// Clone returns an index that shares every posting list with ix. Both
// indexes copy a list before their first write to it, so writing to the
// clone never disturbs readers of ix.
func (ix *Index) Clone() *Index {
	ix.owned = make(map[string]struct{})
	return &Index{
		analyzer:    ix.analyzer,
		terms:       maps.Clone(ix.terms),
		owned:       make(map[string]struct{}),
		docLens:     maps.Clone(ix.docLens),
		universe:    ix.universe.Clone(),
		totalTokens: ix.totalTokens,
	}
}

// Postings returns the posting list for term ordered by DocID. An unknown
// term yields an empty list. The positions slices are shared with the index
// and must not be modified.
func (ix *Index) Postings(term string) PostingList {
	pl, ok := ix.terms[term]
	if !ok {
		return nil
	}
	return pl.sorted()
}

// Posting returns the statistics of term in one document.
func (ix *Index) Posting(term string, id DocID) (Posting, bool) {
	pl, ok := ix.terms[term]
	if !ok {
		return Posting{}, false
	}
	p, ok := pl.entries[id]
	if !ok {
		return Posting{}, false
	}
	return *p, true
}

// DocSet returns the documents containing term. The bitmap belongs to the
// caller.
func (ix *Index) DocSet(term string) *roaring.Bitmap {
	pl, ok := ix.terms[term]
	if !ok {
		return roaring.New()
	}
	return pl.docs.Clone()
}

func (ix *Index) DocumentFrequency(term string) int {
	pl, ok := ix.terms[term]
	if !ok {
		return 0
	}
	return len(pl.entries)
}

func (ix *Index) TermFrequency(term string, id DocID) int {
	p, ok := ix.Posting(term, id)
	if !ok {
		return 0
	}
	return p.Frequency
}

// DocumentCount returns N, the number of indexed documents.
func (ix *Index) DocumentCount() int {
	return len(ix.docLens)
}

// DocLength returns the number of terms indexed for id.
func (ix *Index) DocLength(id DocID) int {
	return ix.docLens[id]
}

// TermCount returns the vocabulary size.
func (ix *Index) TermCount() int {
	return len(ix.terms)
}

func (ix *Index) TotalTokens() int64 {
	return ix.totalTokens
}

func (ix *Index) Contains(id DocID) bool {
	return ix.universe.Contains(uint32(id))
}

// MaxDocID returns the largest indexed id; ok is false for an empty index.
func (ix *Index) MaxDocID() (DocID, bool) {
	if ix.universe.IsEmpty() {
		return 0, false
	}
	return DocID(ix.universe.Maximum()), true
}

// Universe returns the set of every indexed document. The bitmap belongs to
// the caller.
func (ix *Index) Universe() *roaring.Bitmap {
	return ix.universe.Clone()
}

// Documents yields every document with its length in ascending id order.
func (ix *Index) Documents() iter.Seq[DocStats] {
	return func(yield func(DocStats) bool) {
		it := ix.universe.Iterator()
		for it.HasNext() {
			id := DocID(it.Next())
			if !yield(DocStats{DocID: id, DocLen: ix.docLens[id]}) {
				return
			}
		}
	}
}

// Entries yields every (term, posting list) pair in ascending term order.
func (ix *Index) Entries() iter.Seq[TermEntry] {
	return func(yield func(TermEntry) bool) {
		for _, term := range ix.vocabulary() {
			if !yield(TermEntry{Term: term, Postings: ix.terms[term].sorted()}) {
				return
			}
		}
	}
}

// Snapshot materialises Entries.
func (ix *Index) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(ix.terms))
	for entry := range ix.Entries() {
		entries = append(entries, entry)
	}
	return entries
}

// Vocabulary returns every indexed term in ascending order.
func (ix *Index) Vocabulary() []string {
	return slices.Clone(ix.vocabulary())
}

func (ix *Index) vocabulary() []string {
	ix.vocabOnce.Do(func() {
		vocab := make([]string, 0, len(ix.terms))
		for term := range ix.terms {
			vocab = append(vocab, term)
		}
		sort.Strings(vocab)
		ix.vocab = vocab
	})
	return ix.vocab
}

func (ix *Index) resetVocabulary() {
	ix.vocabOnce = sync.Once{}
	ix.vocab = nil
}

type Stats struct {
	Documents int   `json:"documents"`
	Terms     int   `json:"terms"`
	Postings  int   `json:"postings"`
	Tokens    int64 `json:"tokens"`
}

func (ix *Index) Stats() Stats {
	postings := 0
	for _, pl := range ix.terms {
		postings += len(pl.entries)
	}
	return Stats{
		Documents: len(ix.docLens),
		Terms:     len(ix.terms),
		Postings:  postings,
		Tokens:    ix.totalTokens,
	}
}

// UnionDocSets returns the documents containing any of terms.
func (ix *Index) UnionDocSets(terms []string) *roaring.Bitmap {
	sets := make([]*roaring.Bitmap, 0, len(terms))
	for _, term := range terms {
		if pl, ok := ix.terms[term]; ok {
			sets = append(sets, pl.docs)
		}
	}
	if len(sets) == 0 {
		return roaring.New()
	}
	return roaring.FastOr(sets...)
}

// IntersectDocSets returns the documents containing every one of terms.
// The smallest sets are intersected first so the result shrinks quickly.
func (ix *Index) IntersectDocSets(terms []string) *roaring.Bitmap {
	if len(terms) == 0 {
		return roaring.New()
	}
	sets := make([]*roaring.Bitmap, 0, len(terms))
	for _, term := range terms {
		pl, ok := ix.terms[term]
		if !ok {
			return roaring.New()
		}
		sets = append(sets, pl.docs)
	}
	slices.SortFunc(sets, func(a, b *roaring.Bitmap) int {
		return cmp.Compare(a.GetCardinality(), b.GetCardinality())
	})
	result := sets[0].Clone()
	for _, s := range sets[1:] {
		if result.IsEmpty() {
			break
		}
		result.And(s)
	}
	return result
}
