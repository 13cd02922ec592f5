package index

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/errors"
)

// Load rebuilds an index from persisted term entries and document lengths.
// The data is checked against the index invariants: postings ordered by
// DocID without repeats, frequency equal to the number of positions,
// positions strictly ascending, every posting pointing at a known document,
// and every document length equal to the sum of its term frequencies.
// Violations are reported as ErrSnapshotCorrupt.
func Load(analyzer *tokenizer.Analyzer, entries []TermEntry, docs []DocStats) (*Index, error) {
	ix := New(analyzer)

	for _, d := range docs {
		if _, dup := ix.docLens[d.DocID]; dup {
			return nil, corrupt("document %d listed twice", d.DocID)
		}
		if d.DocLen < 0 {
			return nil, corrupt("document %d has negative length", d.DocID)
		}
		ix.docLens[d.DocID] = d.DocLen
		ix.universe.Add(uint32(d.DocID))
		ix.totalTokens += int64(d.DocLen)
	}

	seen := make(map[DocID]int, len(docs))
	for _, entry := range entries {
		if entry.Term == "" {
			return nil, corrupt("empty term")
		}
		if _, dup := ix.terms[entry.Term]; dup {
			return nil, corrupt("term %q listed twice", entry.Term)
		}
		pl := newPostingList()
		for i := range entry.Postings {
			p := entry.Postings[i]
			if i > 0 && p.DocID <= entry.Postings[i-1].DocID {
				return nil, corrupt("postings for %q not in ascending order", entry.Term)
			}
			if _, known := ix.docLens[p.DocID]; !known {
				return nil, corrupt("term %q references unknown document %d", entry.Term, p.DocID)
			}
			if p.Frequency <= 0 || p.Frequency != len(p.Positions) {
				return nil, corrupt("term %q in document %d: frequency %d with %d positions",
					entry.Term, p.DocID, p.Frequency, len(p.Positions))
			}
			for j := 1; j < len(p.Positions); j++ {
				if p.Positions[j] <= p.Positions[j-1] {
					return nil, corrupt("term %q in document %d: positions not ascending", entry.Term, p.DocID)
				}
			}
			seen[p.DocID] += p.Frequency
			pl.add(&p)
		}
		if len(pl.entries) == 0 {
			continue
		}
		ix.terms[entry.Term] = pl
		ix.owned[entry.Term] = struct{}{}
	}

	for id, length := range ix.docLens {
		if seen[id] != length {
			return nil, corrupt("document %d has length %d but %d indexed terms", id, length, seen[id])
		}
	}
	return ix, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrSnapshotCorrupt, fmt.Sprintf(format, args...))
}
