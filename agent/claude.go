package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/stocksense/stocksense-go/core"
	"github.com/stocksense/stocksense-go/memory"
)

// ClaudeSynthesizer renders the memo narrative with Claude. Opt-in; the
// deterministic Memo synthesizer remains the default. A failed API call
// returns AgentError.ReasoningFailed so the orchestrator's retry policy
// applies.
type ClaudeSynthesizer struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// ClaudeOption configures the Claude synthesizer.
type ClaudeOption func(*ClaudeSynthesizer)

// WithModel overrides the default model.
func WithModel(model string) ClaudeOption {
	return func(c *ClaudeSynthesizer) {
		c.model = model
	}
}

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(n int64) ClaudeOption {
	return func(c *ClaudeSynthesizer) {
		c.maxTokens = n
	}
}

// NewClaudeSynthesizer wraps an Anthropic client.
func NewClaudeSynthesizer(client *anthropic.Client, opts ...ClaudeOption) *ClaudeSynthesizer {
	c := &ClaudeSynthesizer{
		client:    client,
		model:     "claude-sonnet-4-20250514",
		maxTokens: 2048,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ClaudeSynthesizer) Kind() core.Dimension { return core.DimensionSynthesis }

const synthesizerSystemPrompt = `You are an equity research analyst writing a concise investment memo.

You will receive per-dimension findings (fundamental, technical, sentiment, filings) with confidence scores, plus summaries of prior analyses of the same company.

Write a memo that:
1. Opens with a one-paragraph overall assessment
2. Covers each available dimension briefly
3. Notes explicitly which dimensions were unavailable and why
4. Compares against prior analyses when they are provided

Do not invent data beyond the findings given. Keep it under 400 words.`

// Synthesize asks Claude to render the memo from the structured findings.
// The per-dimension conclusions are passed verbatim; Claude writes narrative,
// not analysis, so the memo stays grounded in the findings.
func (c *ClaudeSynthesizer) Synthesize(ctx context.Context, subject core.Subject, findings []core.Finding, memories []memory.Entry) (core.Finding, error) {
	if len(findings) == 0 {
		return core.Finding{}, core.NewAgentError(c.Kind(), core.AgentInsufficientData,
			fmt.Errorf("no findings to synthesize"))
	}

	// The deterministic memo doubles as the structured prompt body.
	structured, err := NewMemo().Synthesize(ctx, subject, findings, memories)
	if err != nil {
		return core.Finding{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(structured.Conclusion)),
		},
		System: []anthropic.TextBlockParam{
			{Text: synthesizerSystemPrompt},
		},
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return core.Finding{}, core.NewAgentError(c.Kind(), core.AgentReasoningFailed,
			fmt.Errorf("claude API error: %w", err))
	}

	var memo string
	for _, block := range resp.Content {
		if block.Type == "text" {
			memo += block.Text
		}
	}
	if memo == "" {
		return core.Finding{}, core.NewAgentError(c.Kind(), core.AgentReasoningFailed,
			fmt.Errorf("empty response from model %s", c.model))
	}

	log.Printf("[SYNTH] Claude memo for %s: %d input, %d output tokens",
		subject.Symbol, resp.Usage.InputTokens, resp.Usage.OutputTokens)

	return core.Finding{
		AgentKind:  c.Kind(),
		Subject:    subject.Symbol,
		Conclusion: memo,
		Confidence: structured.Confidence,
		ProducedAt: time.Now().UTC(),
	}, nil
}
