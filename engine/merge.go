package engine

import (
	"sort"

	"github.com/stocksense/stocksense-go/core"
)

// Merge deduplicates findings by (agent_kind, subject): the highest
// confidence wins, confidence ties go to the most recent ProducedAt. The
// result is ordered by agent kind so merging is deterministic.
//
// A degraded placeholder never beats a real finding for the same key since
// its confidence is pinned to zero.
func Merge(findings []core.Finding) []core.Finding {
	type key struct {
		kind    core.Dimension
		subject string
	}

	best := make(map[key]core.Finding, len(findings))
	for _, f := range findings {
		k := key{f.AgentKind, f.Subject}
		cur, ok := best[k]
		if !ok {
			best[k] = f
			continue
		}
		if f.Confidence > cur.Confidence ||
			(f.Confidence == cur.Confidence && f.ProducedAt.After(cur.ProducedAt)) {
			best[k] = f
		}
	}

	merged := make([]core.Finding, 0, len(best))
	for _, f := range best {
		merged = append(merged, f)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].AgentKind != merged[j].AgentKind {
			return merged[i].AgentKind < merged[j].AgentKind
		}
		return merged[i].Subject < merged[j].Subject
	})
	return merged
}
