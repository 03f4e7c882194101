// Package agent holds the per-dimension analysts. Each agent reads the
// observations routed to its dimension and produces exactly one Finding; the
// synthesizer folds the per-dimension findings into the investment memo.
//
// Agents are pure with respect to the run: they never fetch, never write
// memory, and never see another agent's output.
package agent

import (
	"context"
	"fmt"

	"github.com/stocksense/stocksense-go/core"
	"github.com/stocksense/stocksense-go/memory"
)

// Agent evaluates one analysis dimension.
type Agent interface {
	// Kind is the dimension this agent covers.
	Kind() core.Dimension

	// Evaluate derives a single finding from the observations and any
	// recalled memory entries. Returns a *core.AgentError on failure; the
	// orchestrator decides whether to retry or degrade the dimension.
	//
	// The orchestrator recalls memory after merging, so the per-dimension
	// agents run with a nil memory context; only the synthesizer sees
	// prior entries.
	Evaluate(ctx context.Context, subject core.Subject, obs []core.Observation, memories []memory.Entry) (core.Finding, error)
}

// Registry dispatches dimensions to agents through a lookup table. The
// dimension set is closed, so registration of an unknown kind is a
// programming error surfaced at wiring time.
type Registry struct {
	agents map[core.Dimension]Agent
}

// NewRegistry builds a registry from the given agents.
func NewRegistry(agents ...Agent) (*Registry, error) {
	r := &Registry{agents: make(map[core.Dimension]Agent, len(agents))}
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry wires the four standard analysts.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		NewFundamental(),
		NewTechnical(),
		NewSentiment(),
		NewFilings(),
	)
	if err != nil {
		// The standard set is statically valid.
		panic(err)
	}
	return r
}

// Register adds an agent. Exactly one agent per dimension.
func (r *Registry) Register(a Agent) error {
	kind := a.Kind()
	valid := false
	for _, d := range core.AllDimensions {
		if d == kind {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown agent dimension %q", kind)
	}
	if _, dup := r.agents[kind]; dup {
		return fmt.Errorf("duplicate agent for dimension %q", kind)
	}
	r.agents[kind] = a
	return nil
}

// Get returns the agent for a dimension.
func (r *Registry) Get(kind core.Dimension) (Agent, bool) {
	a, ok := r.agents[kind]
	return a, ok
}

// Kinds lists the registered dimensions in core.AllDimensions order.
func (r *Registry) Kinds() []core.Dimension {
	var kinds []core.Dimension
	for _, d := range core.AllDimensions {
		if _, ok := r.agents[d]; ok {
			kinds = append(kinds, d)
		}
	}
	return kinds
}

// observationIDs collects the support references for a finding.
func observationIDs(obs []core.Observation) []string {
	ids := make([]string, len(obs))
	for i, o := range obs {
		ids[i] = o.ID
	}
	return ids
}

// requireObservations is the shared empty-input guard.
func requireObservations(kind core.Dimension, obs []core.Observation) error {
	if len(obs) == 0 {
		return core.NewAgentError(kind, core.AgentInsufficientData,
			fmt.Errorf("no observations for %s", kind))
	}
	return nil
}

// clamp bounds a confidence into [0, 1].
func clamp(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
