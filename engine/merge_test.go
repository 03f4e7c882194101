package engine

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/stocksense/stocksense-go/core"
)

func finding(kind core.Dimension, subject string, confidence float64, producedAt time.Time) core.Finding {
	return core.Finding{
		AgentKind:   kind,
		Subject:     subject,
		DerivedFrom: []string{"obs-1"},
		Conclusion:  "conclusion",
		Confidence:  confidence,
		ProducedAt:  producedAt,
	}
}

func TestMergeHighestConfidenceWins(t *testing.T) {
	older := finding(core.DimensionSentiment, "ACME", 0.4, testTime)
	newer := finding(core.DimensionSentiment, "ACME", 0.8, testTime.Add(time.Hour))

	merged := Merge([]core.Finding{older, newer})
	if len(merged) != 1 {
		t.Fatalf("got %d findings, want 1", len(merged))
	}
	if merged[0].Confidence != 0.8 {
		t.Errorf("kept confidence %v, want 0.8", merged[0].Confidence)
	}

	// Same outcome regardless of input order.
	reversed := Merge([]core.Finding{newer, older})
	if diff := cmp.Diff(merged, reversed); diff != "" {
		t.Errorf("merge depends on input order (-want +got):\n%s", diff)
	}
}

func TestMergeTieBreaksByRecency(t *testing.T) {
	older := finding(core.DimensionSentiment, "ACME", 0.6, testTime)
	newer := finding(core.DimensionSentiment, "ACME", 0.6, testTime.Add(time.Hour))
	newer.Conclusion = "newer conclusion"

	merged := Merge([]core.Finding{older, newer})
	if len(merged) != 1 {
		t.Fatalf("got %d findings, want 1", len(merged))
	}
	if merged[0].Conclusion != "newer conclusion" {
		t.Errorf("kept %q, want the newer finding", merged[0].Conclusion)
	}
}

func TestMergeKeepsDistinctKeys(t *testing.T) {
	findings := []core.Finding{
		finding(core.DimensionSentiment, "ACME", 0.5, testTime),
		finding(core.DimensionTechnical, "ACME", 0.5, testTime),
		finding(core.DimensionSentiment, "OTHR", 0.5, testTime),
	}

	merged := Merge(findings)
	if len(merged) != 3 {
		t.Fatalf("got %d findings, want 3", len(merged))
	}
}

func TestMergeDegradedNeverBeatsReal(t *testing.T) {
	genuine := finding(core.DimensionFilings, "ACME", 0.3, testTime)
	placeholder := core.DegradedFinding(core.DimensionFilings, "ACME", "Timeout")
	placeholder.ProducedAt = testTime.Add(time.Hour)

	merged := Merge([]core.Finding{placeholder, genuine})
	if len(merged) != 1 {
		t.Fatalf("got %d findings, want 1", len(merged))
	}
	if merged[0].Degraded {
		t.Error("degraded placeholder beat a real finding")
	}
}
