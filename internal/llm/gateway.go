// Package llm is the generation gateway boundary: send an ordered list of
// role-tagged messages, receive text. Implementations must surface transport
// failure as a typed error so the orchestrator can tell "agent produced bad
// output" from "agent could not run at all".
package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
)

// GenerateOptions carries per-call sampling budgets.
type GenerateOptions struct {
	Temperature float32
	MaxTokens   int
}

// DefaultOptions mirror the analyst defaults of the original engine.
func DefaultOptions() GenerateOptions {
	return GenerateOptions{Temperature: 0.7, MaxTokens: 2000}
}

// Gateway abstracts the upstream text-generation service.
type Gateway interface {
	Generate(ctx context.Context, messages []*schema.Message, opts GenerateOptions) (string, error)
}

// CallError wraps an upstream call failure.
type CallError struct {
	Provider string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("llm call to %s failed: %v", e.Provider, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }
