package agents

import (
	"context"
	"fmt"

	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/domain"
	"github.com/SPYQWER1/aiagents-stock/internal/llm"
)

// SentimentAnalyst 市场情绪分析师
type SentimentAnalyst struct {
	gateway llm.Gateway
}

func (a *SentimentAnalyst) Role() domain.AgentRole { return domain.RoleMarketSentiment }
func (a *SentimentAnalyst) Name() string           { return "市场情绪分析师" }

func (a *SentimentAnalyst) Analyze(ctx context.Context, stock domain.StockInfo, bundle *dataflows.Bundle) (*domain.AgentReview, error) {
	sentimentDataText := ""
	if bundle.Sentiment != nil {
		sentimentDataText = fmt.Sprintf("\n【市场情绪实际数据】\n%s\n以上是基于历史行情计算的实际市场情绪数据，请重点基于这些数据进行分析。\n",
			bundle.Sentiment.FormatForAI())
	}

	prompt := fmt.Sprintf(sentimentPromptTpl,
		stock.Symbol, stringOrNA(stock.Name),
		stringOrNA(stock.Sector), stringOrNA(stock.Industry),
		sentimentDataText,
	)

	text, err := callGateway(ctx, a.gateway, sentimentPersona, prompt, llm.GenerateOptions{
		Temperature: 0.8,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}

	return newReview(a.Role(), a.Name(), text, []string{"ARBR指标", "市场情绪", "投资者心理"}), nil
}
