package memory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/stocksense/stocksense-go/core"
)

// Manager orchestrates memory operations for the engine: recall before
// synthesis, commit after a run seals. The engine is opinionated about WHEN
// memory is touched; the Manager decides HOW entries are embedded, ranked,
// and chained.
type Manager struct {
	store    Store
	embedder Embedder

	// maxAge drops recalled entries older than this. Staleness is an
	// external policy knob; zero disables the filter.
	maxAge time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMaxAge sets the recall staleness cutoff.
func WithMaxAge(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.maxAge = d
	}
}

// NewManager wires a store and an embedder.
func NewManager(store Store, embedder Embedder, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, embedder: embedder}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Recall returns up to k prior entries for the subject, most similar to the
// current findings first. An empty result is not an error.
func (m *Manager) Recall(ctx context.Context, subject string, findings []core.Finding, k int) ([]Entry, error) {
	if k <= 0 {
		return nil, nil
	}

	summary := SummarizeFindings(findings)
	embedding, err := m.embedder.Embed(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("embed recall query: %w", err)
	}

	entries, err := m.store.Query(ctx, subject, embedding, k, QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}

	if m.maxAge > 0 {
		cutoff := time.Now().Add(-m.maxAge)
		fresh := entries[:0]
		for _, e := range entries {
			if e.CreatedAt.After(cutoff) {
				fresh = append(fresh, e)
			}
		}
		entries = fresh
	}

	log.Printf("[MEMORY] Recalled %d entries for %s", len(entries), subject)
	return entries, nil
}

// Commit appends exactly one entry derived from a sealed RunResult. The new
// entry supersedes the subject's most recent prior entry so default recall
// never returns stale duplicates for the same subject.
func (m *Manager) Commit(ctx context.Context, result *core.RunResult) (string, error) {
	if result == nil || !result.Sealed() {
		return "", fmt.Errorf("commit requires a sealed run result")
	}

	summary := SummarizeFindings(result.Findings)
	embedding, err := m.embedder.Embed(ctx, summary)
	if err != nil {
		return "", fmt.Errorf("embed summary: %w", err)
	}

	entry, err := NewEntry(result, embedding)
	if err != nil {
		return "", err
	}

	prior, err := m.store.Latest(ctx, result.Subject.Symbol)
	if err != nil {
		return "", fmt.Errorf("find prior entry: %w", err)
	}
	if prior != nil {
		entry.Supersedes = prior.ID
	}

	id, err := m.store.Append(ctx, entry)
	if err != nil {
		return "", fmt.Errorf("append entry: %w", err)
	}

	log.Printf("[MEMORY] Committed entry %s for %s (supersedes %q)", id, entry.Subject, entry.Supersedes)
	return id, nil
}
