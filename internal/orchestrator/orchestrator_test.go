package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/SPYQWER1/aiagents-stock/internal/agents"
	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/domain"
	"github.com/SPYQWER1/aiagents-stock/internal/llm"
)

// scriptedGateway answers discussion and decision calls in order and keeps
// the prompts it saw.
type scriptedGateway struct {
	responses []string
	prompts   []string
	calls     int
}

func (g *scriptedGateway) Generate(_ context.Context, messages []*schema.Message, _ llm.GenerateOptions) (string, error) {
	g.calls++
	for _, m := range messages {
		if m.Role == schema.User {
			g.prompts = append(g.prompts, m.Content)
		}
	}
	if len(g.responses) == 0 {
		return "", &llm.CallError{Provider: "scripted", Err: errors.New("no scripted response")}
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp, nil
}

type stubAnalyst struct {
	role   domain.AgentRole
	name   string
	text   string
	err    error
	noData bool
	delay  time.Duration
}

func (s *stubAnalyst) Role() domain.AgentRole { return s.role }
func (s *stubAnalyst) Name() string           { return s.name }

func (s *stubAnalyst) Analyze(ctx context.Context, _ domain.StockInfo, _ *dataflows.Bundle) (*domain.AgentReview, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.noData {
		return nil, nil
	}
	return &domain.AgentReview{
		Role:      s.role,
		AgentName: s.name,
		Content: domain.AnalysisContent{
			Summary:   s.text,
			RawOutput: s.text,
		},
	}, nil
}

func table(analysts ...*stubAnalyst) map[domain.AgentRole]agents.Analyst {
	out := make(map[domain.AgentRole]agents.Analyst, len(analysts))
	for _, a := range analysts {
		out[a.role] = a
	}
	return out
}

func newTestAnalysis() *domain.StockAnalysis {
	return domain.NewStockAnalysis(domain.StockInfo{
		Symbol:       "600036",
		Name:         "招商银行",
		CurrentPrice: 35.2,
	}, "1y")
}

const decisionJSON = `{"rating": "买入", "target_price": "40.0", "confidence": "8"}`

func TestPerformAllAnalystsSucceed(t *testing.T) {
	gw := &scriptedGateway{responses: []string{"team discussion text", decisionJSON}}
	tech := &stubAnalyst{role: domain.RoleTechnical, name: "技术分析师", text: "均线多头排列"}
	fund := &stubAnalyst{role: domain.RoleFundamental, name: "基本面分析师", text: "估值偏低"}

	o := New(gw, table(tech, fund))
	analysis := newTestAnalysis()
	bundle := &dataflows.Bundle{Indicators: map[string]float64{"ma20": 34.5}}

	if err := o.Perform(context.Background(), analysis, bundle, []domain.AgentRole{domain.RoleTechnical, domain.RoleFundamental}); err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if got := len(analysis.Reviews()); got != 2 {
		t.Fatalf("reviews = %d, want 2", got)
	}
	if analysis.Status() != domain.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", analysis.Status())
	}
	if analysis.TeamDiscussion() != "team discussion text" {
		t.Fatalf("discussion = %q", analysis.TeamDiscussion())
	}
	if rating := analysis.FinalDecision()["rating"]; rating != "买入" {
		t.Fatalf("rating = %v, want 买入", rating)
	}
	if gw.calls != 2 {
		t.Fatalf("gateway calls = %d, want 2 (discussion + decision)", gw.calls)
	}
}

func TestPerformOneAnalystFails(t *testing.T) {
	gw := &scriptedGateway{responses: []string{"discussion", decisionJSON}}
	tech := &stubAnalyst{role: domain.RoleTechnical, name: "技术分析师", text: "趋势向上"}
	news := &stubAnalyst{role: domain.RoleNewsAnalyst, name: "新闻分析师", err: errors.New("api down")}

	o := New(gw, table(tech, news))
	analysis := newTestAnalysis()

	if err := o.Perform(context.Background(), analysis, &dataflows.Bundle{}, []domain.AgentRole{domain.RoleTechnical, domain.RoleNewsAnalyst}); err != nil {
		t.Fatalf("Perform: %v", err)
	}
	reviews := analysis.Reviews()
	if len(reviews) != 1 {
		t.Fatalf("reviews = %d, want 1", len(reviews))
	}
	if _, ok := reviews[domain.RoleNewsAnalyst]; ok {
		t.Fatal("failed analyst must not leave a review")
	}
	if analysis.Status() != domain.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED despite one failure", analysis.Status())
	}
}

func TestPerformNoDataAnalystSkipped(t *testing.T) {
	gw := &scriptedGateway{responses: []string{"discussion", decisionJSON}}
	tech := &stubAnalyst{role: domain.RoleTechnical, name: "技术分析师", text: "震荡"}
	news := &stubAnalyst{role: domain.RoleNewsAnalyst, name: "新闻分析师", noData: true}

	o := New(gw, table(tech, news))
	analysis := newTestAnalysis()

	if err := o.Perform(context.Background(), analysis, &dataflows.Bundle{}, []domain.AgentRole{domain.RoleTechnical, domain.RoleNewsAnalyst}); err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if got := len(analysis.Reviews()); got != 1 {
		t.Fatalf("reviews = %d, want 1", got)
	}
	if analysis.Status() != domain.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", analysis.Status())
	}
}

func TestPerformAllAnalystsFail(t *testing.T) {
	gw := &scriptedGateway{}
	tech := &stubAnalyst{role: domain.RoleTechnical, name: "技术分析师", err: errors.New("boom")}
	fund := &stubAnalyst{role: domain.RoleFundamental, name: "基本面分析师", err: errors.New("boom")}

	o := New(gw, table(tech, fund))
	analysis := newTestAnalysis()

	err := o.Perform(context.Background(), analysis, &dataflows.Bundle{}, []domain.AgentRole{domain.RoleTechnical, domain.RoleFundamental})
	if !errors.Is(err, ErrNoReviews) {
		t.Fatalf("err = %v, want ErrNoReviews", err)
	}
	if analysis.Status() != domain.StatusFailed {
		t.Fatalf("status = %s, want FAILED", analysis.Status())
	}
	if analysis.FailReason() == "" {
		t.Fatal("fail reason must be recorded")
	}
	if gw.calls != 0 {
		t.Fatalf("gateway calls = %d, want 0 when nothing to discuss", gw.calls)
	}
}

func TestPerformAnalystTimeout(t *testing.T) {
	gw := &scriptedGateway{responses: []string{"discussion", decisionJSON}}
	tech := &stubAnalyst{role: domain.RoleTechnical, name: "技术分析师", text: "快"}
	slow := &stubAnalyst{role: domain.RoleMarketSentiment, name: "市场情绪分析师", text: "慢", delay: time.Second}

	o := New(gw, table(tech, slow), WithAnalystTimeout(20*time.Millisecond))
	analysis := newTestAnalysis()

	if err := o.Perform(context.Background(), analysis, &dataflows.Bundle{}, []domain.AgentRole{domain.RoleTechnical, domain.RoleMarketSentiment}); err != nil {
		t.Fatalf("Perform: %v", err)
	}
	reviews := analysis.Reviews()
	if _, ok := reviews[domain.RoleMarketSentiment]; ok {
		t.Fatal("timed-out analyst must not leave a review")
	}
	if _, ok := reviews[domain.RoleTechnical]; !ok {
		t.Fatal("fast analyst review missing")
	}
	if analysis.Status() != domain.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", analysis.Status())
	}
}

// The discussion prompt lists analysts in canonical role order regardless of
// which task finished first.
func TestDiscussionSummaryCanonicalOrder(t *testing.T) {
	gw := &scriptedGateway{responses: []string{"discussion", decisionJSON}}
	tech := &stubAnalyst{role: domain.RoleTechnical, name: "技术分析师", text: "A", delay: 30 * time.Millisecond}
	news := &stubAnalyst{role: domain.RoleNewsAnalyst, name: "新闻分析师", text: "B"}

	o := New(gw, table(tech, news))
	analysis := newTestAnalysis()

	// news listed first on purpose, ordering must not depend on input order
	if err := o.Perform(context.Background(), analysis, &dataflows.Bundle{}, []domain.AgentRole{domain.RoleNewsAnalyst, domain.RoleTechnical}); err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if len(gw.prompts) < 1 {
		t.Fatal("discussion prompt not captured")
	}
	discussionPrompt := gw.prompts[0]
	techAt := strings.Index(discussionPrompt, "技术分析师")
	newsAt := strings.Index(discussionPrompt, "新闻分析师")
	if techAt < 0 || newsAt < 0 {
		t.Fatalf("both analysts must appear in prompt:\n%s", discussionPrompt)
	}
	if techAt > newsAt {
		t.Fatal("technical analyst must precede news analyst in the summary")
	}
}

func TestPerformDiscussionCallFails(t *testing.T) {
	gw := &scriptedGateway{} // no scripted responses: discussion call errors
	tech := &stubAnalyst{role: domain.RoleTechnical, name: "技术分析师", text: "ok"}

	o := New(gw, table(tech))
	analysis := newTestAnalysis()

	err := o.Perform(context.Background(), analysis, &dataflows.Bundle{}, []domain.AgentRole{domain.RoleTechnical})
	if err == nil {
		t.Fatal("expected error from failed discussion call")
	}
	if analysis.Status() != domain.StatusFailed {
		t.Fatalf("status = %s, want FAILED", analysis.Status())
	}
}
