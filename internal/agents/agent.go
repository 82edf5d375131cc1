// Package agents implements the six analyst variants. Each variant selects
// its slice of the data bundle, formats a role-specific prompt, makes one
// gateway call under a fixed persona, and wraps the text into an
// AnalysisContent. Variants share no state.
package agents

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/domain"
	"github.com/SPYQWER1/aiagents-stock/internal/llm"
)

const summaryLimit = 200

// Analyst is one role-specific analysis task over a shared data bundle.
//
// Analyze returns (nil, nil) only when the variant's required optional data
// is entirely absent and it has no fallback path. A non-nil error means the
// task could not run at all.
type Analyst interface {
	Role() domain.AgentRole
	Name() string
	Analyze(ctx context.Context, stock domain.StockInfo, bundle *dataflows.Bundle) (*domain.AgentReview, error)
}

// BuildAgents constructs the full role dispatch table once. There is no
// global registry; callers own the returned map.
func BuildAgents(gateway llm.Gateway) map[domain.AgentRole]Analyst {
	return map[domain.AgentRole]Analyst{
		domain.RoleTechnical:       &TechnicalAnalyst{gateway: gateway},
		domain.RoleFundamental:     &FundamentalAnalyst{gateway: gateway},
		domain.RoleFundFlow:        &FundFlowAnalyst{gateway: gateway},
		domain.RoleRiskManagement:  &RiskAnalyst{gateway: gateway},
		domain.RoleMarketSentiment: &SentimentAnalyst{gateway: gateway},
		domain.RoleNewsAnalyst:     &NewsAnalyst{gateway: gateway},
	}
}

func callGateway(ctx context.Context, gateway llm.Gateway, persona, prompt string, opts llm.GenerateOptions) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(persona),
		schema.UserMessage(prompt),
	}
	return gateway.Generate(ctx, messages, opts)
}

// newReview wraps raw analysis text into an immutable review, capping the
// summary at the fixed character budget.
func newReview(role domain.AgentRole, agentName, text string, focusAreas []string) *domain.AgentReview {
	summary := text
	if runes := []rune(text); len(runes) > summaryLimit {
		summary = string(runes[:summaryLimit]) + "..."
	}
	return &domain.AgentReview{
		Role:      role,
		AgentName: agentName,
		Timestamp: time.Now(),
		Content: domain.AnalysisContent{
			Summary:    summary,
			Details:    map[string]any{"full_content": text},
			FocusAreas: focusAreas,
			RawOutput:  text,
		},
	}
}
