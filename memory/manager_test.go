package memory_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stocksense/stocksense-go/core"
	"github.com/stocksense/stocksense-go/memory"
	"github.com/stocksense/stocksense-go/memory/embedder/hash"
	"github.com/stocksense/stocksense-go/memory/store/chromem"
)

func sealedResult(t *testing.T, symbol string, findings ...core.Finding) *core.RunResult {
	t.Helper()
	sub, err := core.NewSubject(symbol, time.Now())
	if err != nil {
		t.Fatalf("NewSubject: %v", err)
	}
	r := core.NewRunResult(sub)
	for _, f := range findings {
		r.AddFinding(f)
	}
	r.Seal("memo for " + symbol)
	return r
}

func finding(kind core.Dimension, conclusion string, confidence float64) core.Finding {
	return core.Finding{
		AgentKind:   kind,
		Subject:     "ACME",
		DerivedFrom: []string{"obs-1"},
		Conclusion:  conclusion,
		Confidence:  confidence,
		ProducedAt:  time.Now(),
	}
}

func TestManagerCommitRequiresSealedResult(t *testing.T) {
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("chromem.New: %v", err)
	}
	mgr := memory.NewManager(store, hash.New())

	sub, _ := core.NewSubject("ACME", time.Now())
	unsealed := core.NewRunResult(sub)
	if _, err := mgr.Commit(context.Background(), unsealed); err == nil {
		t.Fatal("commit of unsealed result must fail")
	}
}

func TestManagerCommitThenRecallReturnsEntryFirst(t *testing.T) {
	ctx := context.Background()
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("chromem.New: %v", err)
	}
	mgr := memory.NewManager(store, hash.New())

	findings := []core.Finding{finding(core.DimensionSentiment, "mostly positive coverage", 0.8)}
	result := sealedResult(t, "ACME", findings...)

	id, err := mgr.Commit(ctx, result)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if id == "" {
		t.Fatal("Commit returned empty ID")
	}

	// Same findings embed to the same vector, so the entry must rank first.
	entries, err := mgr.Recall(ctx, "ACME", findings, 5)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one recalled entry")
	}
	if entries[0].ID != id {
		t.Errorf("first recalled entry = %s, want %s", entries[0].ID, id)
	}
	if !strings.Contains(entries[0].Summary, "mostly positive coverage") {
		t.Errorf("summary missing conclusion: %q", entries[0].Summary)
	}
}

func TestManagerCommitSupersedesPriorEntry(t *testing.T) {
	ctx := context.Background()
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("chromem.New: %v", err)
	}
	mgr := memory.NewManager(store, hash.New())

	first := []core.Finding{finding(core.DimensionSentiment, "negative press", 0.6)}
	firstID, err := mgr.Commit(ctx, sealedResult(t, "ACME", first...))
	if err != nil {
		t.Fatalf("first Commit: %v", err)
	}

	second := []core.Finding{finding(core.DimensionSentiment, "negative press", 0.7)}
	secondID, err := mgr.Commit(ctx, sealedResult(t, "ACME", second...))
	if err != nil {
		t.Fatalf("second Commit: %v", err)
	}

	// Default recall must hide the superseded first entry.
	entries, err := mgr.Recall(ctx, "ACME", second, 10)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	for _, e := range entries {
		if e.ID == firstID {
			t.Errorf("superseded entry %s leaked into default recall", firstID)
		}
	}

	latest, err := store.Latest(ctx, "ACME")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.ID != secondID {
		t.Fatalf("Latest = %+v, want entry %s", latest, secondID)
	}
	if latest.Supersedes != firstID {
		t.Errorf("Supersedes = %q, want %q", latest.Supersedes, firstID)
	}
}

func TestStoreQueryIncludeSuperseded(t *testing.T) {
	ctx := context.Background()
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("chromem.New: %v", err)
	}
	mgr := memory.NewManager(store, hash.New())
	emb := hash.New()

	f := []core.Finding{finding(core.DimensionTechnical, "RSI overbought", 0.5)}
	firstID, err := mgr.Commit(ctx, sealedResult(t, "ACME", f...))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := mgr.Commit(ctx, sealedResult(t, "ACME", f...)); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	vec, err := emb.Embed(ctx, memory.SummarizeFindings(f))
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	audit, err := store.Query(ctx, "ACME", vec, 10, memory.QueryOptions{IncludeSuperseded: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	found := false
	for _, e := range audit {
		if e.ID == firstID {
			found = true
		}
	}
	if !found {
		t.Error("IncludeSuperseded query should return the superseded entry")
	}
}

func TestManagerRecallMaxAge(t *testing.T) {
	ctx := context.Background()
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("chromem.New: %v", err)
	}

	// A cutoff in the past filters everything just committed.
	mgr := memory.NewManager(store, hash.New(), memory.WithMaxAge(time.Nanosecond))

	f := []core.Finding{finding(core.DimensionFundamental, "fairly valued", 0.5)}
	if _, err := mgr.Commit(ctx, sealedResult(t, "ACME", f...)); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	entries, err := mgr.Recall(ctx, "ACME", f, 5)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("stale entries recalled: %d", len(entries))
	}
}

func TestSummarizeFindingsDeterministic(t *testing.T) {
	a := []core.Finding{
		finding(core.DimensionTechnical, "uptrend", 0.7),
		finding(core.DimensionSentiment, "bullish chatter", 0.6),
	}
	b := []core.Finding{a[1], a[0]} // reversed order

	if memory.SummarizeFindings(a) != memory.SummarizeFindings(b) {
		t.Error("summary must not depend on finding order")
	}
	if !strings.Contains(memory.SummarizeFindings(a), "sentiment: bullish chatter") {
		t.Errorf("unexpected summary: %q", memory.SummarizeFindings(a))
	}
}
