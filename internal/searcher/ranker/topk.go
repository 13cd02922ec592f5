package ranker

import "container/heap"

// TopK returns the k best documents by descending score, ties broken by
// ascending DocID. A non-positive k returns every document in that order.
func TopK(docs []ScoredDoc, k int) []ScoredDoc {
	if k <= 0 || k > len(docs) {
		k = len(docs)
	}
	h := make(scoredDocHeap, 0, k+1)
	for _, doc := range docs {
		heap.Push(&h, doc)
		if h.Len() > k {
			heap.Pop(&h)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredDoc)
	}
	return result
}

// Better reports whether a ranks ahead of b.
func Better(a, b ScoredDoc) bool {
	if a.RawScore != b.RawScore {
		return a.RawScore > b.RawScore
	}
	return a.DocID < b.DocID
}

// scoredDocHeap keeps the worst retained document at the root.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return Better(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
