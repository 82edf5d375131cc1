package agents

import (
	"context"
	"fmt"

	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/domain"
	"github.com/SPYQWER1/aiagents-stock/internal/llm"
)

// FundFlowAnalyst 资金面分析师
type FundFlowAnalyst struct {
	gateway llm.Gateway
}

func (a *FundFlowAnalyst) Role() domain.AgentRole { return domain.RoleFundFlow }
func (a *FundFlowAnalyst) Name() string           { return "资金面分析师" }

func (a *FundFlowAnalyst) Analyze(ctx context.Context, stock domain.StockInfo, bundle *dataflows.Bundle) (*domain.AgentReview, error) {
	fundFlowSection := "\n【资金流向数据】\n注意：未能获取到资金流向数据，将基于成交量进行分析。\n"
	if bundle.FundFlow != nil && len(bundle.FundFlow.Days) > 0 {
		fundFlowSection = fmt.Sprintf("\n【近%d个交易日资金流向详细数据】\n%s\n以上是从东方财富获取的实际资金流向数据，请重点基于这些数据进行趋势分析。\n",
			len(bundle.FundFlow.Days), bundle.FundFlow.FormatForAI())
	}

	prompt := fmt.Sprintf(fundFlowPromptTpl,
		stock.Symbol, stringOrNA(stock.Name),
		indicator(bundle.Indicators, "turnover_rate"),
		indicator(bundle.Indicators, "volume_ratio"),
		fundFlowSection,
	)

	text, err := callGateway(ctx, a.gateway, fundFlowPersona, prompt, llm.GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}

	return newReview(a.Role(), a.Name(), text, []string{"资金流向", "主力动向", "市场情绪", "流动性"}), nil
}
