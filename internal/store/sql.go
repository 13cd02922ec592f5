package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/resilience"
)

// Dialect captures the differences between the SQL backends: placeholder
// syntax and column types.
type Dialect struct {
	Name        string
	Positional  bool
	createTable string
}

var (
	Postgres = Dialect{
		Name:       "postgres",
		Positional: true,
		createTable: `CREATE TABLE IF NOT EXISTS documents (
			id         BIGINT PRIMARY KEY,
			title      TEXT NOT NULL,
			body       TEXT NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	SQLite = Dialect{
		Name: "sqlite",
		createTable: `CREATE TABLE IF NOT EXISTS documents (
			id         INTEGER PRIMARY KEY,
			title      TEXT NOT NULL,
			body       TEXT NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
)

// Rebind rewrites '?' placeholders into the dialect's syntax.
func (d Dialect) Rebind(query string) string {
	if !d.Positional {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

const (
	upsertDocument = `INSERT INTO documents (id, title, body, metadata) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title, body = excluded.body, metadata = excluded.metadata`
	selectDocument = `SELECT id, title, body, metadata FROM documents WHERE id = ?`
	selectSince    = `SELECT id, title, body, metadata FROM documents WHERE id >= ? ORDER BY id`
	countDocuments = `SELECT COUNT(*) FROM documents`
)

// SQLStore persists documents in a relational database through
// database/sql. Writes are retried with backoff.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

// NewSQLStore wraps an open database handle and creates the documents table
// when it does not exist yet.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect, retryAttempts int) (*SQLStore, error) {
	s := &SQLStore{
		db:      db,
		dialect: dialect,
		retry:   resilience.RetryConfig{MaxAttempts: retryAttempts},
		logger:  slog.Default().With("component", "store", "dialect", dialect.Name),
	}
	if _, err := db.ExecContext(ctx, dialect.createTable); err != nil {
		return nil, fmt.Errorf("creating documents table: %w", err)
	}
	return s, nil
}

// OpenSQLite opens (creating if needed) a SQLite database file using the
// pure-Go modernc driver.
func OpenSQLite(ctx context.Context, path string, retryAttempts int) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}
	s, err := NewSQLStore(ctx, db, SQLite, retryAttempts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Put(ctx context.Context, doc Document) error {
	meta, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return err
	}
	query := s.dialect.Rebind(upsertDocument)
	return resilience.Retry(ctx, "store.put", s.retry, func() error {
		_, err := s.db.ExecContext(ctx, query, int64(doc.ID), doc.Title, doc.Body, meta)
		if err != nil {
			return fmt.Errorf("storing document %d: %w", doc.ID, err)
		}
		return nil
	})
}

// PutBatch stores all documents in one transaction.
func (s *SQLStore) PutBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	metas := make([]string, len(docs))
	for i, doc := range docs {
		meta, err := encodeMetadata(doc.Metadata)
		if err != nil {
			return err
		}
		metas[i] = meta
	}
	query := s.dialect.Rebind(upsertDocument)
	return resilience.Retry(ctx, "store.put_batch", s.retry, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, query)
			if err != nil {
				return fmt.Errorf("preparing insert: %w", err)
			}
			defer stmt.Close()
			for i, doc := range docs {
				if _, err := stmt.ExecContext(ctx, int64(doc.ID), doc.Title, doc.Body, metas[i]); err != nil {
					return fmt.Errorf("storing document %d: %w", doc.ID, err)
				}
			}
			return nil
		})
	})
}

func (s *SQLStore) Get(ctx context.Context, id index.DocID) (Document, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(selectDocument), int64(id))
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, notFound(id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("loading document %d: %w", id, err)
	}
	return doc, nil
}

func (s *SQLStore) Since(ctx context.Context, from index.DocID) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(selectSince), int64(from))
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countDocuments).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var (
		id   int64
		doc  Document
		meta string
	)
	if err := row.Scan(&id, &doc.Title, &doc.Body, &meta); err != nil {
		return Document{}, err
	}
	doc.ID = index.DocID(id)
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			return Document{}, fmt.Errorf("decoding metadata of document %d: %w", id, err)
		}
	}
	return doc, nil
}

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	return string(data), nil
}
