package agents

import (
	"context"
	"fmt"

	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/domain"
	"github.com/SPYQWER1/aiagents-stock/internal/llm"
)

// RiskAnalyst 风险管理师
type RiskAnalyst struct {
	gateway llm.Gateway
}

func (a *RiskAnalyst) Role() domain.AgentRole { return domain.RoleRiskManagement }
func (a *RiskAnalyst) Name() string           { return "风险管理师" }

func (a *RiskAnalyst) Analyze(ctx context.Context, stock domain.StockInfo, bundle *dataflows.Bundle) (*domain.AgentReview, error) {
	riskDataText := ""
	if bundle.Risk != nil {
		riskDataText = fmt.Sprintf("\n【实际风险数据】\n%s以上是基于历史行情计算的实际风险数据，请重点关注这些数据进行深度风险分析。\n",
			bundle.Risk.FormatForAI())
	}

	ind := bundle.Indicators
	prompt := fmt.Sprintf(riskPromptTpl,
		stock.Symbol, stringOrNA(stock.Name),
		floatOrNA(stock.CurrentPrice),
		indicator(ind, "beta"),
		indicator(ind, "high_52w"), indicator(ind, "low_52w"),
		indicator(ind, "rsi"),
		riskDataText,
	)

	text, err := callGateway(ctx, a.gateway, riskPersona, prompt, llm.GenerateOptions{
		Temperature: 0.6,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}

	return newReview(a.Role(), a.Name(), text, []string{"风险识别", "风险量化", "风险控制", "资产配置"}), nil
}
