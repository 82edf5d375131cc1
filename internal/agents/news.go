package agents

import (
	"context"
	"fmt"

	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/domain"
	"github.com/SPYQWER1/aiagents-stock/internal/llm"
)

// NewsAnalyst 新闻分析师
type NewsAnalyst struct {
	gateway llm.Gateway
}

func (a *NewsAnalyst) Role() domain.AgentRole { return domain.RoleNewsAnalyst }
func (a *NewsAnalyst) Name() string           { return "新闻分析师" }

// Analyze returns no review when there is no news at all: unlike the other
// variants this one has nothing to degrade to.
func (a *NewsAnalyst) Analyze(ctx context.Context, stock domain.StockInfo, bundle *dataflows.Bundle) (*domain.AgentReview, error) {
	if bundle.News == nil || len(bundle.News.Items) == 0 {
		return nil, nil
	}

	newsText := fmt.Sprintf("\n【最新新闻数据】\n%s\n以上是获取到的实际新闻数据，请重点基于这些数据进行分析。\n",
		bundle.News.FormatForAI())

	prompt := fmt.Sprintf(newsPromptTpl,
		stock.Symbol, stringOrNA(stock.Name),
		stringOrNA(stock.Sector), stringOrNA(stock.Industry),
		newsText,
	)

	text, err := callGateway(ctx, a.gateway, newsPersona, prompt, llm.GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}

	return newReview(a.Role(), a.Name(), text, []string{"舆情分析", "新闻事件", "股价影响"}), nil
}
