package core

import (
	"errors"
	"fmt"
)

// ConnectorErrorKind classifies transient, source-local fetch failures.
// Every kind maps to the degraded-dimension path; none is fatal to a run.
type ConnectorErrorKind string

const (
	ConnectorTimeout     ConnectorErrorKind = "Timeout"
	ConnectorRateLimited ConnectorErrorKind = "RateLimited"
	ConnectorUnavailable ConnectorErrorKind = "Unavailable"
)

// ConnectorError is returned by a connector fetch. It carries the source tag
// so the fan-in step can name the cause on the degraded finding.
type ConnectorError struct {
	Source Source
	Kind   ConnectorErrorKind
	Err    error
}

func (e *ConnectorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connector %s: %s: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("connector %s: %s", e.Source, e.Kind)
}

func (e *ConnectorError) Unwrap() error { return e.Err }

// NewConnectorError wraps a cause with a source tag and kind.
func NewConnectorError(source Source, kind ConnectorErrorKind, err error) *ConnectorError {
	return &ConnectorError{Source: source, Kind: kind, Err: err}
}

// AgentErrorKind classifies agent evaluation failures.
type AgentErrorKind string

const (
	// AgentInsufficientData is raised when the observation set is empty.
	// It degrades that dimension only.
	AgentInsufficientData AgentErrorKind = "InsufficientData"

	// AgentReasoningFailed marks a retryable evaluation failure. The
	// orchestrator retries once with identical inputs, then degrades.
	AgentReasoningFailed AgentErrorKind = "ReasoningFailed"
)

// AgentError is returned by Agent.Evaluate.
type AgentError struct {
	Agent Dimension
	Kind  AgentErrorKind
	Err   error
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent %s: %s: %v", e.Agent, e.Kind, e.Err)
	}
	return fmt.Sprintf("agent %s: %s", e.Agent, e.Kind)
}

func (e *AgentError) Unwrap() error { return e.Err }

// NewAgentError wraps a cause with the agent kind.
func NewAgentError(agent Dimension, kind AgentErrorKind, err error) *AgentError {
	return &AgentError{Agent: agent, Kind: kind, Err: err}
}

// OrchestrationErrorKind classifies the only run-fatal outcomes.
type OrchestrationErrorKind string

const (
	ConfigInvalid       OrchestrationErrorKind = "ConfigInvalid"
	AllDimensionsFailed OrchestrationErrorKind = "AllDimensionsFailed"
	SynthesisFailed     OrchestrationErrorKind = "SynthesisFailed"
)

// OrchestrationError is the only error type Run surfaces to the caller.
// Everything below it is absorbed into degraded findings.
type OrchestrationError struct {
	Kind   OrchestrationErrorKind
	Detail string
	Err    error
}

func (e *OrchestrationError) Error() string {
	msg := fmt.Sprintf("orchestration: %s", e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OrchestrationError) Unwrap() error { return e.Err }

// IsOrchestrationError reports whether err is an OrchestrationError of the
// given kind.
func IsOrchestrationError(err error, kind OrchestrationErrorKind) bool {
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}

// ConnectorErrorCause extracts the kind string used as a degraded finding's
// cause. Non-connector errors read as Unavailable.
func ConnectorErrorCause(err error) string {
	var ce *ConnectorError
	if errors.As(err, &ce) {
		return string(ce.Kind)
	}
	return string(ConnectorUnavailable)
}
