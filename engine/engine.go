// Package engine is the orchestrator: it fans a subject out to the source
// connectors, routes observations to the per-dimension agents, merges the
// findings deterministically, recalls and commits memory, and sequences the
// final synthesis. Partial source failure degrades a dimension, never the
// run; only AllDimensionsFailed and SynthesisFailed are run-fatal.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/stocksense/stocksense-go/agent"
	"github.com/stocksense/stocksense-go/connector"
	"github.com/stocksense/stocksense-go/core"
	"github.com/stocksense/stocksense-go/memory"
)

// Engine schedules one analysis run at a time per call; calls are safe to
// make concurrently since runs share only the memory store, whose appends
// are atomic.
type Engine struct {
	connectors  []connector.Connector
	registry    *agent.Registry
	synthesizer agent.Synthesizer
	memory      *memory.Manager // optional
	retry       RetryPolicy
	period      string
}

// Option configures the engine.
type Option func(*Engine)

// WithMemory attaches a memory manager for recall and write-back.
func WithMemory(m *memory.Manager) Option {
	return func(e *Engine) {
		e.memory = m
	}
}

// WithSynthesizer replaces the deterministic memo synthesizer.
func WithSynthesizer(s agent.Synthesizer) Option {
	return func(e *Engine) {
		e.synthesizer = s
	}
}

// WithRetryPolicy replaces the default retry-once policy for agent calls.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) {
		e.retry = p
	}
}

// WithPeriod sets the fetch window period ("1d".."5y"). Default "1mo".
func WithPeriod(period string) Option {
	return func(e *Engine) {
		e.period = period
	}
}

// NewEngine wires connectors and agents. The registry must cover every
// dimension the run configs will enable; uncovered dimensions degrade.
func NewEngine(connectors []connector.Connector, registry *agent.Registry, opts ...Option) *Engine {
	e := &Engine{
		connectors:  connectors,
		registry:    registry,
		synthesizer: agent.NewMemo(),
		retry:       DefaultRetryPolicy(),
		period:      "1mo",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// fetchResult is the immutable settlement of one connector task. Exactly one
// of obs/err is meaningful; err carries the degraded cause.
type fetchResult struct {
	source    core.Source
	dimension core.Dimension
	obs       []core.Observation
	err       error
}

// Run executes the full pipeline for one subject. The returned RunResult is
// sealed; the error is always an *core.OrchestrationError when non-nil.
func (e *Engine) Run(ctx context.Context, subject core.Subject, cfg core.Config) (*core.RunResult, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	window, err := connector.WindowForPeriod(e.period, subject.AsOf)
	if err != nil {
		return nil, &core.OrchestrationError{Kind: core.ConfigInvalid, Detail: "fetch period", Err: err}
	}

	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	result := core.NewRunResult(subject)

	// Fan-out: one task per enabled connector, bounded by MaxConcurrency
	// and the per-source timeout. Failures settle as tagged results; the
	// group never aborts early.
	fetches := e.fetchAll(ctx, subject, window, cfg)

	// Fan-in barrier passed. Route observations and failure causes to
	// their dimensions.
	obsByDim := make(map[core.Dimension][]core.Observation)
	causesByDim := make(map[core.Dimension][]string)
	for _, fr := range fetches {
		if fr.err != nil {
			log.Printf("[ENGINE] %s fetch failed for %s: %v", fr.source, subject.Symbol, fr.err)
			causesByDim[fr.dimension] = append(causesByDim[fr.dimension], core.ConnectorErrorCause(fr.err))
			continue
		}
		log.Printf("[ENGINE] %s fetched %d observations for %s", fr.source, len(fr.obs), subject.Symbol)
		obsByDim[fr.dimension] = append(obsByDim[fr.dimension], fr.obs...)
	}

	// Fan-out agent evaluations, one per enabled dimension. Each slot is
	// written by exactly one goroutine and read only after the join.
	dims := cfg.Dimensions()
	findings := make([]core.Finding, len(dims))
	var wg sync.WaitGroup
	for i, dim := range dims {
		wg.Add(1)
		go func(i int, dim core.Dimension) {
			defer wg.Done()
			findings[i] = e.evaluate(ctx, subject, dim, obsByDim[dim], causesByDim[dim])
		}(i, dim)
	}
	wg.Wait()

	// Merge and check the only all-or-nothing failure mode before any
	// memory write.
	merged := Merge(findings)
	allDegraded := true
	for _, f := range merged {
		if !f.Degraded {
			allDegraded = false
			break
		}
	}
	if allDegraded {
		return nil, &core.OrchestrationError{
			Kind:   core.AllDimensionsFailed,
			Detail: fmt.Sprintf("all %d enabled dimensions degraded for %s", len(merged), subject.Symbol),
		}
	}

	for _, f := range merged {
		result.AddFinding(f)
	}

	// Recall prior context for the synthesizer. Recall failure is absorbed:
	// the memo just loses its history section.
	var recalled []memory.Entry
	if e.memory != nil && cfg.MemoryTopK > 0 {
		recalled, err = e.memory.Recall(ctx, subject.Symbol, merged, cfg.MemoryTopK)
		if err != nil {
			log.Printf("[ENGINE] memory recall failed for %s: %v", subject.Symbol, err)
			recalled = nil
		}
	}

	memoFinding, err := e.retry.do(ctx, func() (core.Finding, error) {
		return e.synthesizer.Synthesize(ctx, subject, merged, recalled)
	})
	if err != nil {
		return nil, &core.OrchestrationError{Kind: core.SynthesisFailed, Detail: subject.Symbol, Err: err}
	}

	result.Seal(memoFinding.Conclusion)
	log.Printf("[ENGINE] run sealed for %s: %d findings, %d degraded",
		subject.Symbol, len(result.Findings), result.DegradedCount())

	// Write-back strictly after sealing. A failed commit loses history for
	// future runs but the current result stands.
	if e.memory != nil {
		if _, err := e.memory.Commit(ctx, result); err != nil {
			log.Printf("[ENGINE] memory commit failed for %s: %v", subject.Symbol, err)
		}
	}

	return result, nil
}

// fetchAll runs every enabled connector under the concurrency bound and
// returns once all tasks settle.
func (e *Engine) fetchAll(ctx context.Context, subject core.Subject, window connector.Window, cfg core.Config) []fetchResult {
	var enabled []connector.Connector
	for _, c := range e.connectors {
		if cfg.DimensionEnabled(c.Dimension()) {
			enabled = append(enabled, c)
		}
	}

	results := make([]fetchResult, len(enabled))
	sem := semaphore.NewWeighted(int64(cfg.MaxConcurrency))
	var g errgroup.Group
	for i, c := range enabled {
		g.Go(func() error {
			results[i] = fetchResult{source: c.Source(), dimension: c.Dimension()}
			if err := sem.Acquire(ctx, 1); err != nil {
				// Run-level cancellation before the task started.
				results[i].err = core.NewConnectorError(c.Source(), core.ConnectorTimeout, err)
				return nil
			}
			defer sem.Release(1)

			fetchCtx, cancel := context.WithTimeout(ctx, cfg.PerSourceTimeout)
			defer cancel()

			obs, err := c.Fetch(fetchCtx, subject, window)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].obs = obs
			return nil
		})
	}
	// Task errors are settled into results, never returned.
	_ = g.Wait()
	return results
}

// evaluate produces exactly one finding for a dimension: the agent's on
// success, a degraded placeholder on any failure path.
func (e *Engine) evaluate(ctx context.Context, subject core.Subject, dim core.Dimension, obs []core.Observation, causes []string) core.Finding {
	if len(obs) == 0 {
		return core.DegradedFinding(dim, subject.Symbol, degradedCause(causes))
	}

	a, ok := e.registry.Get(dim)
	if !ok {
		return core.DegradedFinding(dim, subject.Symbol, "NoAgent")
	}

	finding, err := e.retry.do(ctx, func() (core.Finding, error) {
		return a.Evaluate(ctx, subject, obs, nil)
	})
	if err != nil {
		log.Printf("[ENGINE] %s agent failed for %s: %v", dim, subject.Symbol, err)
		return core.DegradedFinding(dim, subject.Symbol, agentCause(err))
	}
	if err := finding.Validate(); err != nil {
		// Unsupported or out-of-range findings are rejected, not patched.
		log.Printf("[ENGINE] %s agent returned invalid finding for %s: %v", dim, subject.Symbol, err)
		return core.DegradedFinding(dim, subject.Symbol, string(core.AgentReasoningFailed))
	}
	return finding
}

// degradedCause names why a dimension had no observations.
func degradedCause(causes []string) string {
	if len(causes) == 0 {
		return string(core.AgentInsufficientData)
	}
	uniq := make([]string, 0, len(causes))
	seen := make(map[string]bool, len(causes))
	for _, c := range causes {
		if !seen[c] {
			seen[c] = true
			uniq = append(uniq, c)
		}
	}
	sort.Strings(uniq)
	return strings.Join(uniq, ",")
}

// agentCause maps an evaluation error to a cause tag.
func agentCause(err error) string {
	var ae *core.AgentError
	if errors.As(err, &ae) {
		return string(ae.Kind)
	}
	return string(core.AgentReasoningFailed)
}
