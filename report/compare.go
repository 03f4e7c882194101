package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/stocksense/stocksense-go/core"
)

var peRe = regexp.MustCompile(`PE (\d+(?:\.\d+)?)`)

// TrailingPE extracts the trailing PE from the fundamental finding. Best
// effort, like LatestPrice; an unprofitable company has no PE to extract.
func TrailingPE(result *core.RunResult) (float64, bool) {
	f, ok := result.FindingFor(core.DimensionFundamental)
	if !ok || f.Degraded {
		return 0, false
	}
	m := peRe.FindStringSubmatch(f.Conclusion)
	if m == nil {
		return 0, false
	}
	pe, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return pe, true
}

// RenderComparison puts two sealed results side by side: price, trailing PE,
// and the price multiple between them.
func RenderComparison(a, b *core.RunResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Comparing %s vs %s\n\n", a.Subject.Symbol, b.Subject.Symbol)
	writeComparisonLines(&sb, a)
	sb.WriteString("\n")
	writeComparisonLines(&sb, b)

	priceA, okA := LatestPrice(a)
	priceB, okB := LatestPrice(b)
	if okA && okB && priceA > 0 && priceB > 0 {
		cheap, rich := a, b
		low, high := priceA, priceB
		if priceA > priceB {
			cheap, rich = b, a
			low, high = priceB, priceA
		}
		fmt.Fprintf(&sb, "\n%s trades at %.1fx the price of %s\n",
			rich.Subject.Symbol, high/low, cheap.Subject.Symbol)
	}
	return sb.String()
}

func writeComparisonLines(sb *strings.Builder, r *core.RunResult) {
	fmt.Fprintf(sb, "%s:\n", r.Subject.Symbol)
	if price, ok := LatestPrice(r); ok {
		fmt.Fprintf(sb, "  Price: %.2f\n", price)
	} else {
		sb.WriteString("  Price: unavailable\n")
	}
	if pe, ok := TrailingPE(r); ok {
		fmt.Fprintf(sb, "  PE ratio: %.1f\n", pe)
	} else {
		sb.WriteString("  PE ratio: unavailable\n")
	}
}
