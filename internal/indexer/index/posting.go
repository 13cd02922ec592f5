package index

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/errors"
)

// DocID identifies a document across the index, the document store and
// search results. IDs are never reused.
type DocID uint32

// Posting holds the statistics of one term in one document. Positions are
// ascending and Frequency always equals len(Positions).
type Posting struct {
	DocID     DocID `json:"d"`
	Frequency int   `json:"f"`
	Positions []int `json:"p"`
}

// PostingList is ordered by ascending DocID.
type PostingList []Posting

// TermEntry pairs a term with its full posting list. It is the unit the
// persistence layer reads and writes.
type TermEntry struct {
	Term     string      `json:"term"`
	Postings PostingList `json:"postings"`
}

// DocStats summarises one document.
type DocStats struct {
	DocID  DocID `json:"id"`
	DocLen int   `json:"len"`
}

// DuplicateDocumentError is returned when an id is indexed twice.
type DuplicateDocumentError struct {
	ID DocID
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("document %d already indexed", e.ID)
}

func (e *DuplicateDocumentError) Unwrap() error {
	return apperrors.ErrDuplicateDocument
}

// postingList is the in-memory form of one term's postings: a bitmap of the
// documents for set algebra plus per-document statistics.
type postingList struct {
	docs    *roaring.Bitmap
	entries map[DocID]*Posting
}

func newPostingList() *postingList {
	return &postingList{
		docs:    roaring.New(),
		entries: make(map[DocID]*Posting),
	}
}

// clone copies the containers but shares the Posting values, which are
// never modified once inserted.
func (pl *postingList) clone() *postingList {
	entries := make(map[DocID]*Posting, len(pl.entries)+1)
	for id, p := range pl.entries {
		entries[id] = p
	}
	return &postingList{
		docs:    pl.docs.Clone(),
		entries: entries,
	}
}

func (pl *postingList) add(p *Posting) {
	pl.entries[p.DocID] = p
	pl.docs.Add(uint32(p.DocID))
}

func (pl *postingList) sorted() PostingList {
	result := make(PostingList, 0, len(pl.entries))
	it := pl.docs.Iterator()
	for it.HasNext() {
		p := pl.entries[DocID(it.Next())]
		result = append(result, *p)
	}
	return result
}
