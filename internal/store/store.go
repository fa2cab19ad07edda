// Package store provides SQLite persistence for extraction documents.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/visiontext/internal/extract"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("store: document not found")

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Document is one stored extraction: what was recognized and what the
// parser made of it.
type Document struct {
	ID        string
	Created   time.Time
	FileName  string
	Fields    extract.Fields
	Fragments []extract.Fragment
	FullText  string // recognized lines joined with "\n"
}

// HistoryEntry converts d into the shape served by GET /events.
func (d Document) HistoryEntry() extract.HistoryEntry {
	return extract.HistoryEntry{
		ID:           d.ID,
		Timestamp:    extract.Timestamp{Time: d.Created},
		EventDetails: d.Fields,
		FullText:     d.FullText,
	}
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for file-based databases.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required tables and indexes if they don't exist.
// created_at holds Unix nanoseconds so ordering does not depend on zones.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS extractions (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		file_name TEXT NOT NULL DEFAULT '',
		event_details TEXT NOT NULL,
		raw_ocr TEXT NOT NULL,
		full_text TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_extractions_created ON extractions(created_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveExtraction inserts doc. The id must be unique.
// Thread-safe: acquires write lock.
func (s *Store) SaveExtraction(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return errors.New("store: document id is empty")
	}

	fields, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("encode event details: %w", err)
	}
	frags := doc.Fragments
	if frags == nil {
		frags = []extract.Fragment{}
	}
	raw, err := json.Marshal(frags)
	if err != nil {
		return fmt.Errorf("encode raw ocr: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO extractions (id, created_at, file_name, event_details, raw_ocr, full_text)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Created.UnixNano(), doc.FileName, string(fields), string(raw), doc.FullText)
	if err != nil {
		return fmt.Errorf("insert extraction %s: %w", doc.ID, err)
	}
	return nil
}

// ListExtractions returns up to limit documents, newest first.
// A non-positive limit returns everything.
// Thread-safe: acquires read lock.
func (s *Store) ListExtractions(ctx context.Context, limit int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return s.queryDocuments(ctx, `
		SELECT id, created_at, file_name, event_details, raw_ocr, full_text
		FROM extractions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
}

// GetExtraction returns the document with the given id.
// Thread-safe: acquires read lock.
func (s *Store) GetExtraction(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, err := s.queryDocuments(ctx, `
		SELECT id, created_at, file_name, event_details, raw_ocr, full_text
		FROM extractions
		WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return &docs[0], nil
}

// Count returns the number of stored documents.
// Thread-safe: acquires read lock.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM extractions").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// queryDocuments executes a query and scans results into Documents.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			doc       Document
			createdNs int64
			fields    string
			raw       string
		)
		if err := rows.Scan(&doc.ID, &createdNs, &doc.FileName, &fields, &raw, &doc.FullText); err != nil {
			return nil, err
		}
		doc.Created = time.Unix(0, createdNs)
		if err := json.Unmarshal([]byte(fields), &doc.Fields); err != nil {
			return nil, fmt.Errorf("decode event details of %s: %w", doc.ID, err)
		}
		if err := json.Unmarshal([]byte(raw), &doc.Fragments); err != nil {
			return nil, fmt.Errorf("decode raw ocr of %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}
