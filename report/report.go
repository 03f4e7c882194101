// Package report holds the thin output collaborators around a sealed
// RunResult: plain-text rendering, file save, and the SMTP alerter. The
// orchestrator never imports this package; the CLI wires it.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/stocksense/stocksense-go/core"
)

// Render returns the full plain-text report: the memo plus a run footer.
func Render(result *core.RunResult) string {
	var b strings.Builder
	b.WriteString(result.Memo)
	if !strings.HasSuffix(result.Memo, "\n") {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nGenerated %s | run started %s | %d findings (%d degraded)\n",
		result.SealedAt.Format("2006-01-02 15:04:05 MST"),
		result.StartedAt.Format("15:04:05"),
		len(result.Findings), result.DegradedCount())
	return b.String()
}

// Save writes the rendered report to dir and returns the path. The filename
// is stock_analysis_<SYM>_<timestamp>.txt.
func Save(dir string, result *core.RunResult) (string, error) {
	if !result.Sealed() {
		return "", fmt.Errorf("cannot save an unsealed run result")
	}
	name := fmt.Sprintf("stock_analysis_%s_%s.txt",
		result.Subject.Symbol, result.SealedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(Render(result)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

var priceRe = regexp.MustCompile(`at (\d+(?:\.\d+)?)`)

// LatestPrice extracts the last traded price from the findings, preferring
// the technical read over the fundamental one. Best effort; the conclusions
// are the only price carrier a sealed result has.
func LatestPrice(result *core.RunResult) (float64, bool) {
	for _, kind := range []core.Dimension{core.DimensionTechnical, core.DimensionFundamental} {
		f, ok := result.FindingFor(kind)
		if !ok || f.Degraded {
			continue
		}
		m := priceRe.FindStringSubmatch(f.Conclusion)
		if m == nil {
			continue
		}
		price, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return price, true
	}
	return 0, false
}
