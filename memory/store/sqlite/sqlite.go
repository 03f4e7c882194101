// Package sqlite backs the memory store with an embedded SQLite database
// (modernc.org/sqlite, no cgo). Entries survive process restarts; similarity
// ranking happens in Go over the subject's candidate rows.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stocksense/stocksense-go/memory"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory_entries (
	id              TEXT PRIMARY KEY,
	subject         TEXT NOT NULL,
	summary         TEXT NOT NULL,
	embedding       TEXT NOT NULL,
	source_findings TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	supersedes      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_memory_entries_subject ON memory_entries(subject);
`

// createdAtLayout pads nanoseconds to fixed width so the TEXT column sorts
// lexically by time. RFC3339Nano trims trailing zeros, which would sort a
// whole-second timestamp after a fractional one within the same second.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists entries in an append-only SQLite table. There is no UPDATE
// or DELETE path: superseding is recorded on the new row, and reads filter
// rows that a later row points at.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Sequential writer; the engine serializes commits per run anyway and
	// SQLite handles cross-run writers with its own locking.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append inserts one immutable row. A single INSERT is atomic in SQLite, so
// concurrent appends never interleave partial writes.
func (s *Store) Append(ctx context.Context, e *memory.Entry) (string, error) {
	if e == nil || e.ID == "" {
		return "", fmt.Errorf("entry must have an ID")
	}
	emb, err := json.Marshal(e.Embedding)
	if err != nil {
		return "", fmt.Errorf("marshal embedding: %w", err)
	}
	refs, err := json.Marshal(e.SourceFindings)
	if err != nil {
		return "", fmt.Errorf("marshal source findings: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_entries (id, subject, summary, embedding, source_findings, created_at, supersedes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Subject, e.Summary, string(emb), string(refs),
		e.CreatedAt.Format(createdAtLayout), e.Supersedes)
	if err != nil {
		return "", fmt.Errorf("insert entry: %w", err)
	}
	return e.ID, nil
}

// Query loads the subject's candidate rows, scores them by cosine similarity
// in Go, and returns the top k (ties broken by recency).
func (s *Store) Query(ctx context.Context, subject string, embedding []float32, k int, opts memory.QueryOptions) ([]memory.Entry, error) {
	if k <= 0 {
		return nil, nil
	}

	q := `SELECT id, subject, summary, embedding, source_findings, created_at, supersedes
	      FROM memory_entries WHERE subject = ?`
	if !opts.IncludeSuperseded {
		q += ` AND NOT EXISTS (
		        SELECT 1 FROM memory_entries newer WHERE newer.supersedes = memory_entries.id)`
	}

	rows, err := s.db.QueryContext(ctx, q, subject)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []memory.Entry
	var scores []float64
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		scores = append(scores, memory.CosineSimilarity(embedding, e.Embedding))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	memory.SortByScore(entries, scores)
	if len(entries) > k {
		entries = entries[:k]
	}
	return entries, nil
}

// Latest returns the newest non-superseded entry for a subject, or nil.
func (s *Store) Latest(ctx context.Context, subject string) (*memory.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, subject, summary, embedding, source_findings, created_at, supersedes
		 FROM memory_entries
		 WHERE subject = ?
		   AND NOT EXISTS (SELECT 1 FROM memory_entries newer WHERE newer.supersedes = memory_entries.id)
		 ORDER BY created_at DESC LIMIT 1`, subject)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (memory.Entry, error) {
	var e memory.Entry
	var emb, refs, createdAt string
	if err := row.Scan(&e.ID, &e.Subject, &e.Summary, &emb, &refs, &createdAt, &e.Supersedes); err != nil {
		if err == sql.ErrNoRows {
			return memory.Entry{}, err
		}
		return memory.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	if err := json.Unmarshal([]byte(emb), &e.Embedding); err != nil {
		return memory.Entry{}, fmt.Errorf("unmarshal embedding: %w", err)
	}
	if err := json.Unmarshal([]byte(refs), &e.SourceFindings); err != nil {
		return memory.Entry{}, fmt.Errorf("unmarshal source findings: %w", err)
	}
	ts, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return memory.Entry{}, fmt.Errorf("parse created_at: %w", err)
	}
	e.CreatedAt = ts
	return e, nil
}
