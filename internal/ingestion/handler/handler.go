// Package handler serves the document endpoints: synchronous indexing,
// optional queueing on Kafka, and retrieval of stored documents.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/logger"
)

const maxRequestBytes = 2 << 20

// DocumentIndexer is satisfied by *indexer.Engine.
type DocumentIndexer interface {
	AddDocument(ctx context.Context, doc store.Document) (index.DocID, error)
	Get(ctx context.Context, id index.DocID) (store.Document, error)
}

type Handler struct {
	indexer   DocumentIndexer
	publisher *publisher.Publisher
	logger    *slog.Logger
}

// New builds the handler. pub may be nil, in which case asynchronous
// ingestion is unavailable.
func New(idx DocumentIndexer, pub *publisher.Publisher) *Handler {
	return &Handler{
		indexer:   idx,
		publisher: pub,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

// Register mounts the document routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/documents", h.Ingest)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
}

// Ingest indexes the posted document and answers 201 with its id. With
// ?async=true the document is queued on Kafka instead and the answer is
// 202 with the event id.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req ingestion.IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIngestRequest(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		if h.publisher == nil {
			h.writeError(w, http.StatusServiceUnavailable, "asynchronous ingestion is not enabled")
			return
		}
		resp, err := h.publisher.Publish(ctx, &req)
		if err != nil {
			log.Error("queueing document failed", "error", err)
			h.writeError(w, apperrors.HTTPStatusCode(err), "queueing document failed")
			return
		}
		log.Info("document queued", "event_id", resp.EventID)
		h.writeJSON(w, http.StatusAccepted, resp)
		return
	}

	id, err := h.indexer.AddDocument(ctx, req.Document())
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("indexing document failed", "error", err, "status_code", status)
		h.writeError(w, status, "indexing document failed")
		return
	}
	docID := uint32(id)
	log.Info("document indexed", "doc_id", docID)
	h.writeJSON(w, http.StatusCreated, ingestion.IngestResponse{DocumentID: &docID, Status: ingestion.StatusIndexed})
}

// GetDocument returns the stored form of one document.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "document id must be a non-negative integer")
		return
	}
	doc, err := h.indexer.Get(r.Context(), index.DocID(id))
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("loading document failed", "doc_id", id, "error", err)
		}
		h.writeError(w, status, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
