package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stocksense/stocksense-go/memory"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testEntry(subject string, embedding []float32, createdAt time.Time) *memory.Entry {
	return &memory.Entry{
		ID:        uuid.New().String(),
		Subject:   subject,
		Embedding: embedding,
		Summary:   "technical: uptrend (confidence 0.70)",
		SourceFindings: []memory.FindingRef{
			{Kind: "technical", Conclusion: "uptrend", Confidence: 0.7},
		},
		CreatedAt: createdAt,
	}
}

func TestAppendThenQueryReturnsEntryFirst(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	target := testEntry("ACME", []float32{1, 0, 0}, time.Now().UTC())
	other := testEntry("ACME", []float32{0, 1, 0}, time.Now().UTC())

	for _, e := range []*memory.Entry{other, target} {
		if _, err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.Query(ctx, "ACME", []float32{1, 0, 0}, 2, memory.QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Query returned %d entries, want 2", len(got))
	}
	if got[0].ID != target.ID {
		t.Errorf("most similar entry = %s, want %s", got[0].ID, target.ID)
	}
}

func TestQuerySimilarityTieBreaksByRecency(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	older := testEntry("ACME", []float32{1, 0, 0}, time.Now().UTC().Add(-time.Hour))
	newer := testEntry("ACME", []float32{1, 0, 0}, time.Now().UTC())

	for _, e := range []*memory.Entry{older, newer} {
		if _, err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.Query(ctx, "ACME", []float32{1, 0, 0}, 2, memory.QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got[0].ID != newer.ID {
		t.Errorf("tie should break toward newest, got %s first", got[0].ID)
	}
}

func TestQueryHidesSupersededByDefault(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	old := testEntry("ACME", []float32{1, 0, 0}, time.Now().UTC().Add(-time.Hour))
	if _, err := store.Append(ctx, old); err != nil {
		t.Fatalf("Append: %v", err)
	}

	replacement := testEntry("ACME", []float32{1, 0, 0}, time.Now().UTC())
	replacement.Supersedes = old.ID
	if _, err := store.Append(ctx, replacement); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.Query(ctx, "ACME", []float32{1, 0, 0}, 10, memory.QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != replacement.ID {
		t.Fatalf("default query = %v, want only replacement", ids(got))
	}

	audit, err := store.Query(ctx, "ACME", []float32{1, 0, 0}, 10, memory.QueryOptions{IncludeSuperseded: true})
	if err != nil {
		t.Fatalf("audit Query: %v", err)
	}
	if len(audit) != 2 {
		t.Errorf("audit query returned %d entries, want 2", len(audit))
	}
}

func TestLatestFollowsSupersedeChain(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if latest, err := store.Latest(ctx, "ACME"); err != nil || latest != nil {
		t.Fatalf("Latest on empty store = %v, %v; want nil, nil", latest, err)
	}

	first := testEntry("ACME", []float32{1, 0, 0}, time.Now().UTC().Add(-time.Hour))
	if _, err := store.Append(ctx, first); err != nil {
		t.Fatalf("Append: %v", err)
	}

	second := testEntry("ACME", []float32{0, 1, 0}, time.Now().UTC())
	second.Supersedes = first.ID
	if _, err := store.Append(ctx, second); err != nil {
		t.Fatalf("Append: %v", err)
	}

	latest, err := store.Latest(ctx, "ACME")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.ID != second.ID {
		t.Errorf("Latest = %v, want %s", latest, second.ID)
	}
}

func TestLatestOrdersWholeSecondsAgainstFractional(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	// A whole-second timestamp and a fractional one in the same second:
	// stored text must still sort by time, not by string length.
	second := time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC)
	earlier := testEntry("ACME", []float32{1, 0, 0}, second)
	later := testEntry("ACME", []float32{0, 1, 0}, second.Add(500*time.Millisecond))

	if _, err := store.Append(ctx, earlier); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := store.Append(ctx, later); err != nil {
		t.Fatalf("Append: %v", err)
	}

	latest, err := store.Latest(ctx, "ACME")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.ID != later.ID {
		t.Errorf("Latest picked %v, want fractional-second entry %s", latest, later.ID)
	}
}

func TestSubjectsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.Append(ctx, testEntry("ACME", []float32{1, 0, 0}, time.Now().UTC())); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.Query(ctx, "OTHER", []float32{1, 0, 0}, 10, memory.QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("cross-subject leak: %v", ids(got))
	}
}

func ids(entries []memory.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
