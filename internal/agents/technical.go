package agents

import (
	"context"
	"fmt"

	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/domain"
	"github.com/SPYQWER1/aiagents-stock/internal/llm"
)

// TechnicalAnalyst 技术分析师
type TechnicalAnalyst struct {
	gateway llm.Gateway
}

func (a *TechnicalAnalyst) Role() domain.AgentRole { return domain.RoleTechnical }
func (a *TechnicalAnalyst) Name() string           { return "技术分析师" }

func (a *TechnicalAnalyst) Analyze(ctx context.Context, stock domain.StockInfo, bundle *dataflows.Bundle) (*domain.AgentReview, error) {
	ind := bundle.Indicators

	prompt := fmt.Sprintf(technicalPromptTpl,
		stock.Symbol, stringOrNA(stock.Name),
		floatOrNA(stock.CurrentPrice),
		indicator(ind, "change_percent"),
		indicator(ind, "ma5"), indicator(ind, "ma10"), indicator(ind, "ma20"), indicator(ind, "ma60"),
		indicator(ind, "rsi"),
		indicator(ind, "macd"), indicator(ind, "macd_signal"),
		indicator(ind, "bb_upper"), indicator(ind, "bb_lower"),
		indicator(ind, "k_value"), indicator(ind, "d_value"),
		indicator(ind, "volume_ratio"),
	)

	text, err := callGateway(ctx, a.gateway, technicalPersona, prompt, llm.GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}

	return newReview(a.Role(), a.Name(), text, []string{"技术指标", "趋势分析", "支撑阻力", "交易信号"}), nil
}
