// Package chromem backs the memory store with chromem-go, a pure Go
// embedded vector database. Suited to single-process runs; use the sqlite
// store when entries must survive restarts.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/stocksense/stocksense-go/memory"
)

// Store wraps chromem-go. Each subject gets its own collection for
// namespace isolation. Documents are immutable once added; supersede
// relationships live in entry metadata and an in-process index, so Append
// never rewrites an existing document.
type Store struct {
	db          *chromem.DB
	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	superseded  map[string]bool          // entry IDs hidden from default queries
	latest      map[string]*memory.Entry // newest non-superseded entry per subject
}

// New creates an empty in-memory store.
func New() (*Store, error) {
	return &Store{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
		superseded:  make(map[string]bool),
		latest:      make(map[string]*memory.Entry),
	}, nil
}

func (s *Store) collection(subject string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[subject]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[subject]; ok {
		return col, nil
	}

	col, err := s.db.CreateCollection(fmt.Sprintf("subject_%s", subject), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[subject] = col
	return col, nil
}

// Append persists one immutable entry. If the entry supersedes a prior one,
// the prior document stays in the collection and is filtered on read.
func (s *Store) Append(ctx context.Context, e *memory.Entry) (string, error) {
	if e == nil || e.ID == "" {
		return "", fmt.Errorf("entry must have an ID")
	}
	col, err := s.collection(e.Subject)
	if err != nil {
		return "", err
	}

	content, err := json.Marshal(entryDoc{
		Summary:        e.Summary,
		SourceFindings: e.SourceFindings,
	})
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}

	doc := chromem.Document{
		ID:        e.ID,
		Content:   string(content),
		Embedding: e.Embedding,
		Metadata: map[string]string{
			"subject":    e.Subject,
			"created_at": e.CreatedAt.Format(time.RFC3339Nano),
			"supersedes": e.Supersedes,
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}

	s.mu.Lock()
	if e.Supersedes != "" {
		s.superseded[e.Supersedes] = true
	}
	cp := *e
	s.latest[e.Subject] = &cp
	s.mu.Unlock()

	log.Printf("[CHROMEM] Appended entry %s for %s", e.ID, e.Subject)
	return e.ID, nil
}

// Query returns up to k entries most similar to the embedding. Superseded
// entries are excluded unless opts.IncludeSuperseded is set; similarity ties
// break toward the newest entry.
func (s *Store) Query(ctx context.Context, subject string, embedding []float32, k int, opts memory.QueryOptions) ([]memory.Entry, error) {
	if k <= 0 {
		return nil, nil
	}

	// Read path stays write-free: a subject nothing was appended for has
	// no collection and no entries.
	s.mu.RLock()
	col, ok := s.collections[subject]
	hidden := len(s.superseded)
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	// Over-fetch so filtering superseded entries still yields k results.
	// chromem caps nResults at the collection size.
	limit := k + hidden
	if count := col.Count(); limit > count {
		limit = count
	}
	if limit == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	var entries []memory.Entry
	var scores []float64
	s.mu.RLock()
	for _, res := range results {
		if !opts.IncludeSuperseded && s.superseded[res.ID] {
			continue
		}
		e, err := resultToEntry(res)
		if err != nil {
			log.Printf("[CHROMEM] Skipping undecodable entry %s: %v", res.ID, err)
			continue
		}
		entries = append(entries, e)
		scores = append(scores, float64(res.Similarity))
	}
	s.mu.RUnlock()

	memory.SortByScore(entries, scores)
	if len(entries) > k {
		entries = entries[:k]
	}
	return entries, nil
}

// Latest returns the newest non-superseded entry for a subject, or nil.
func (s *Store) Latest(ctx context.Context, subject string) (*memory.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.latest[subject]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

// Close releases resources. chromem keeps everything in memory.
func (s *Store) Close() error {
	return nil
}

// entryDoc is the JSON document body stored as chromem content.
type entryDoc struct {
	Summary        string              `json:"summary"`
	SourceFindings []memory.FindingRef `json:"source_findings"`
}

func resultToEntry(res chromem.Result) (memory.Entry, error) {
	var doc entryDoc
	if err := json.Unmarshal([]byte(res.Content), &doc); err != nil {
		return memory.Entry{}, fmt.Errorf("unmarshal content: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, res.Metadata["created_at"])
	if err != nil {
		return memory.Entry{}, fmt.Errorf("parse created_at: %w", err)
	}
	return memory.Entry{
		ID:             res.ID,
		Subject:        res.Metadata["subject"],
		Embedding:      res.Embedding,
		Summary:        doc.Summary,
		SourceFindings: doc.SourceFindings,
		CreatedAt:      createdAt,
		Supersedes:     res.Metadata["supersedes"],
	}, nil
}
