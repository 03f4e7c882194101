package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stocksense/stocksense-go/core"
)

// FindingRef is the slice of a finding that a memory entry preserves: enough
// to reconstruct context for a later run without carrying raw observations.
type FindingRef struct {
	Kind       core.Dimension `json:"kind"`
	Conclusion string         `json:"conclusion"`
	Confidence float64        `json:"confidence"`
}

// Entry is one append-only memory record derived from a sealed RunResult.
// Entries are never mutated or deleted; a newer entry may mark an older one
// superseded, which hides it from default queries but keeps the audit trail.
type Entry struct {
	ID             string       `json:"id"`
	Subject        string       `json:"subject"`
	Embedding      []float32    `json:"embedding"`
	Summary        string       `json:"summary"`
	SourceFindings []FindingRef `json:"source_findings"`
	CreatedAt      time.Time    `json:"created_at"`

	// Supersedes holds the ID of the entry this one replaces, or "".
	Supersedes string `json:"supersedes,omitempty"`
}

// NewEntry derives an entry from a sealed RunResult. The caller supplies the
// embedding of the summary text.
func NewEntry(result *core.RunResult, embedding []float32) (*Entry, error) {
	if result == nil || !result.Sealed() {
		return nil, fmt.Errorf("memory entries derive only from sealed run results")
	}
	refs := make([]FindingRef, 0, len(result.Findings))
	for _, f := range result.Findings {
		refs = append(refs, FindingRef{Kind: f.AgentKind, Conclusion: f.Conclusion, Confidence: f.Confidence})
	}
	return &Entry{
		ID:             uuid.New().String(),
		Subject:        result.Subject.Symbol,
		Embedding:      embedding,
		Summary:        SummarizeFindings(result.Findings),
		SourceFindings: refs,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// SummarizeFindings renders findings as the canonical text that gets embedded
// and stored. Deterministic so identical runs embed identically.
func SummarizeFindings(findings []core.Finding) string {
	sorted := append([]core.Finding(nil), findings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AgentKind < sorted[j].AgentKind })

	var b strings.Builder
	for i, f := range sorted {
		if i > 0 {
			b.WriteString("; ")
		}
		if f.Degraded {
			fmt.Fprintf(&b, "%s: unavailable (%s)", f.AgentKind, f.Cause)
			continue
		}
		fmt.Fprintf(&b, "%s: %s (confidence %.2f)", f.AgentKind, f.Conclusion, f.Confidence)
	}
	return b.String()
}

// QueryOptions tunes Store.Query. The zero value is the default read path.
type QueryOptions struct {
	// IncludeSuperseded also returns entries a later entry has replaced.
	// Audit use only.
	IncludeSuperseded bool
}

// Store is the persistence backend for memory entries.
//
// Append never overwrites: each call persists one immutable entry atomically.
// Query returns entries most-similar first, similarity ties broken by
// recency (newest first), superseded entries excluded unless asked for.
type Store interface {
	Append(ctx context.Context, e *Entry) (string, error)
	Query(ctx context.Context, subject string, embedding []float32, k int, opts QueryOptions) ([]Entry, error)

	// Latest returns the newest non-superseded entry for a subject, or nil.
	// The manager uses it to chain Supersedes links.
	Latest(ctx context.Context, subject string) (*Entry, error)

	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: hash (offline/tests), OpenAI-compatible HTTP, ONNX (tagged).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// CosineSimilarity scores two vectors in [-1, 1]. Mismatched lengths score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SortByScore orders entries most-similar first with recency tie-break.
// Shared by stores that rank in Go rather than in the backing index.
func SortByScore(entries []Entry, scores []float64) {
	type ranked struct {
		e Entry
		s float64
	}
	rs := make([]ranked, len(entries))
	for i := range entries {
		rs[i] = ranked{entries[i], scores[i]}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].s != rs[j].s {
			return rs[i].s > rs[j].s
		}
		return rs[i].e.CreatedAt.After(rs[j].e.CreatedAt)
	})
	for i := range rs {
		entries[i] = rs[i].e
	}
}
