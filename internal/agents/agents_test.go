package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/domain"
	"github.com/SPYQWER1/aiagents-stock/internal/llm"
)

// captureGateway records the last prompt and replies with a fixed text.
type captureGateway struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
	calls      int
}

func (g *captureGateway) Generate(ctx context.Context, messages []*schema.Message, opts llm.GenerateOptions) (string, error) {
	g.calls++
	for _, msg := range messages {
		switch msg.Role {
		case schema.System:
			g.lastSystem = msg.Content
		case schema.User:
			g.lastUser = msg.Content
		}
	}
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func testStock() domain.StockInfo {
	return domain.StockInfo{
		Symbol:       "600036",
		Name:         "招商银行",
		Industry:     "银行",
		CurrentPrice: 35.20,
	}
}

func TestBuildAgentsCoversAllRoles(t *testing.T) {
	table := BuildAgents(&captureGateway{reply: "ok"})
	if len(table) != len(domain.CanonicalRoles) {
		t.Fatalf("got %d agents, want %d", len(table), len(domain.CanonicalRoles))
	}
	for _, role := range domain.CanonicalRoles {
		agent, ok := table[role]
		if !ok {
			t.Fatalf("missing agent for role %s", role)
		}
		if agent.Role() != role {
			t.Fatalf("agent for %s reports role %s", role, agent.Role())
		}
		if agent.Name() == "" {
			t.Fatalf("agent for %s has empty name", role)
		}
	}
}

func TestTechnicalAnalystFormatsIndicators(t *testing.T) {
	gw := &captureGateway{reply: "均线多头排列"}
	agent := &TechnicalAnalyst{gateway: gw}

	bundle := &dataflows.Bundle{
		Indicators: map[string]float64{
			"ma5":  35.10,
			"ma20": 34.50,
			"rsi":  58.3,
		},
	}

	review, err := agent.Analyze(context.Background(), testStock(), bundle)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if review == nil {
		t.Fatal("expected a review")
	}
	if review.Role != domain.RoleTechnical || review.AgentName != "技术分析师" {
		t.Fatalf("unexpected review identity: %s / %s", review.Role, review.AgentName)
	}
	if !strings.Contains(gw.lastUser, "35.10") || !strings.Contains(gw.lastUser, "58.30") {
		t.Fatalf("prompt missing indicator values:\n%s", gw.lastUser)
	}
	// ma60 was never computed, the prompt must say so instead of failing
	if !strings.Contains(gw.lastUser, "N/A") {
		t.Fatalf("prompt should render missing indicators as N/A:\n%s", gw.lastUser)
	}
	if review.Content.Summary != "均线多头排列" {
		t.Fatalf("unexpected summary %q", review.Content.Summary)
	}
}

func TestNewsAnalystSkipsWithoutNews(t *testing.T) {
	gw := &captureGateway{reply: "unused"}
	agent := &NewsAnalyst{gateway: gw}

	review, err := agent.Analyze(context.Background(), testStock(), &dataflows.Bundle{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if review != nil {
		t.Fatal("expected no review without news data")
	}
	if gw.calls != 0 {
		t.Fatalf("gateway called %d times without news", gw.calls)
	}
}

func TestNewsAnalystIncludesHeadlines(t *testing.T) {
	gw := &captureGateway{reply: "舆情偏多"}
	agent := &NewsAnalyst{gateway: gw}

	bundle := &dataflows.Bundle{
		News: &dataflows.NewsData{Items: []dataflows.NewsItem{
			{Title: "三季度净利润同比增长", Source: "东方财富", Time: "2024-10-30"},
		}},
	}

	review, err := agent.Analyze(context.Background(), testStock(), bundle)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if review == nil {
		t.Fatal("expected a review")
	}
	if !strings.Contains(gw.lastUser, "三季度净利润同比增长") {
		t.Fatalf("prompt missing headline:\n%s", gw.lastUser)
	}
}

func TestFundFlowAnalystDegradesWithoutData(t *testing.T) {
	gw := &captureGateway{reply: "基于成交量判断"}
	agent := &FundFlowAnalyst{gateway: gw}

	bundle := &dataflows.Bundle{
		Indicators: map[string]float64{"turnover_rate": 1.2, "volume_ratio": 0.9},
	}

	review, err := agent.Analyze(context.Background(), testStock(), bundle)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if review == nil {
		t.Fatal("expected a review even without fund flow data")
	}
	if !strings.Contains(gw.lastUser, "未能获取到资金流向数据") {
		t.Fatalf("prompt missing degraded note:\n%s", gw.lastUser)
	}
}

func TestAnalystPropagatesGatewayError(t *testing.T) {
	wantErr := errors.New("upstream down")
	agent := &TechnicalAnalyst{gateway: &captureGateway{err: wantErr}}

	_, err := agent.Analyze(context.Background(), testStock(), &dataflows.Bundle{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestNewReviewCapsSummary(t *testing.T) {
	long := strings.Repeat("多", summaryLimit+50)
	review := newReview(domain.RoleTechnical, "技术分析师", long, nil)

	if got := len([]rune(review.Content.Summary)); got != summaryLimit+3 {
		t.Fatalf("summary length = %d runes, want %d", got, summaryLimit+3)
	}
	if !strings.HasSuffix(review.Content.Summary, "...") {
		t.Fatal("truncated summary should end with ellipsis")
	}
	if review.Content.RawOutput != long {
		t.Fatal("raw output must keep the full text")
	}
}
