// Package validator checks ingestion requests before anything is stored or
// published, returning every failing field at once.
package validator

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/errors"
)

const (
	maxTitleLength       = 1024
	maxBodyLength        = 1 << 20
	maxMetadataEntries   = 32
	maxMetadataKeyLength = 64
	maxMetadataValLength = 1024
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidateIngestRequest requires a title or a body, bounds their lengths
// and bounds the metadata map.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)

	title := strings.TrimSpace(req.Title)
	body := strings.TrimSpace(req.Body)
	if title == "" && body == "" {
		errs["body"] = "title or body is required"
	}
	if len(title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d bytes", maxTitleLength)
	}
	if len(body) > maxBodyLength {
		errs["body"] = fmt.Sprintf("body must be at most %d bytes", maxBodyLength)
	}
	if len(req.Metadata) > maxMetadataEntries {
		errs["metadata"] = fmt.Sprintf("at most %d metadata entries are allowed", maxMetadataEntries)
	} else {
		for k, v := range req.Metadata {
			switch {
			case strings.TrimSpace(k) == "":
				errs["metadata"] = "metadata keys must not be empty"
			case len(k) > maxMetadataKeyLength:
				errs["metadata"] = fmt.Sprintf("metadata key %.16q... exceeds %d bytes", k, maxMetadataKeyLength)
			case len(v) > maxMetadataValLength:
				errs["metadata"] = fmt.Sprintf("metadata value for %q exceeds %d bytes", k, maxMetadataValLength)
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
