// Package ranker scores matched documents with TF-IDF and selects the top
// results.
package ranker

import (
	"context"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
)

// TFMode selects how raw term frequency is scaled before weighting.
type TFMode string

const (
	TFRaw       TFMode = "raw"
	TFSublinear TFMode = "sublinear"
)

const checkEvery = 512

// ScoredDoc is one ranked document. Score is RawScore divided by the
// largest raw score among the candidates, so the best match scores 1 when
// any term carried weight.
type ScoredDoc struct {
	DocID    index.DocID `json:"doc_id"`
	Score    float64     `json:"score"`
	RawScore float64     `json:"raw_score"`
}

type Ranker struct {
	mode TFMode
}

// New returns a ranker. Unknown modes fall back to raw counts.
func New(mode TFMode) *Ranker {
	if mode != TFSublinear {
		mode = TFRaw
	}
	return &Ranker{mode: mode}
}

func (r *Ranker) Mode() TFMode {
	return r.mode
}

// TF scales a raw term frequency. Zero stays zero in both modes.
func (r *Ranker) TF(freq int) float64 {
	if freq <= 0 {
		return 0
	}
	if r.mode == TFSublinear {
		return 1 + math.Log(float64(freq))
	}
	return float64(freq)
}

// IDF is ln(n/df), and 0 when df is 0.
func IDF(n, df int) float64 {
	if df <= 0 || n <= 0 {
		return 0
	}
	return math.Log(float64(n) / float64(df))
}

// Score computes a score for every document in candidates over terms,
// returned in ascending DocID order. Duplicate terms count once.
func (r *Ranker) Score(ctx context.Context, ix *index.Index, candidates *roaring.Bitmap, terms []string) ([]ScoredDoc, error) {
	n := ix.DocumentCount()
	type weighted struct {
		term string
		idf  float64
	}
	seen := make(map[string]struct{}, len(terms))
	var weights []weighted
	for _, term := range terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		if idf := IDF(n, ix.DocumentFrequency(term)); idf > 0 {
			weights = append(weights, weighted{term: term, idf: idf})
		}
	}

	out := make([]ScoredDoc, 0, candidates.GetCardinality())
	maxRaw := 0.0
	it := candidates.Iterator()
	for i := 0; it.HasNext(); i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("scoring candidates: %w", err)
			}
		}
		id := index.DocID(it.Next())
		raw := 0.0
		for _, w := range weights {
			raw += r.TF(ix.TermFrequency(w.term, id)) * w.idf
		}
		maxRaw = max(maxRaw, raw)
		out = append(out, ScoredDoc{DocID: id, RawScore: raw})
	}
	if maxRaw > 0 {
		for i := range out {
			out[i].Score = out[i].RawScore / maxRaw
		}
	}
	return out, nil
}
