// Package store keeps the original text of every indexed document so that
// search results can carry titles and snippets. The index itself only
// holds terms and positions.
package store

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/errors"
)

// Document is the stored form of an indexed document.
type Document struct {
	ID       index.DocID       `json:"id"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Text is the string handed to the analyzer when the document is indexed.
func (d Document) Text() string {
	return d.Title + " " + d.Body
}

// Store is implemented by every document backend.
type Store interface {
	Put(ctx context.Context, doc Document) error
	PutBatch(ctx context.Context, docs []Document) error
	Get(ctx context.Context, id index.DocID) (Document, error)
	// Since returns the documents with ID >= from in ascending id order.
	Since(ctx context.Context, from index.DocID) ([]Document, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

func notFound(id index.DocID) error {
	return fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
}
