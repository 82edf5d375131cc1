package domain

import (
	"errors"
	"testing"
)

func testContent(text string) AnalysisContent {
	return AnalysisContent{
		Summary:    text,
		Details:    map[string]any{"full_content": text},
		FocusAreas: []string{"技术指标"},
		RawOutput:  text,
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	a := NewStockAnalysis(StockInfo{Symbol: "600519", Name: "贵州茅台"}, "1y")
	if a.Status() != StatusCreated {
		t.Fatalf("expected CREATED, got %s", a.Status())
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start should be idempotent while in progress: %v", err)
	}
	if a.Status() != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", a.Status())
	}

	if err := a.AddReview(RoleTechnical, testContent("看多"), "技术分析师"); err != nil {
		t.Fatalf("AddReview: %v", err)
	}
	if err := a.ConductDiscussion("团队讨论结果"); err != nil {
		t.Fatalf("ConductDiscussion: %v", err)
	}
	if err := a.FinalizeDecision(map[string]any{"rating": "买入"}); err != nil {
		t.Fatalf("FinalizeDecision: %v", err)
	}
	if a.Status() != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", a.Status())
	}
}

func TestAddReviewAfterFinalize(t *testing.T) {
	a := NewStockAnalysis(StockInfo{Symbol: "600519"}, "1y")
	_ = a.Start()
	_ = a.AddReview(RoleTechnical, testContent("ok"), "技术分析师")
	_ = a.ConductDiscussion("discussion")
	_ = a.FinalizeDecision(map[string]any{"rating": "持有"})

	err := a.AddReview(RoleFundamental, testContent("late"), "基本面分析师")
	var inv *InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvariantError, got %v", err)
	}
	if len(a.Reviews()) != 1 {
		t.Fatalf("review map mutated after COMPLETED")
	}
}

func TestDiscussionRequiresReviews(t *testing.T) {
	a := NewStockAnalysis(StockInfo{Symbol: "600519"}, "1y")
	_ = a.Start()

	err := a.ConductDiscussion("nobody spoke")
	var inv *InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvariantError, got %v", err)
	}
}

func TestFinalizeRequiresDiscussion(t *testing.T) {
	a := NewStockAnalysis(StockInfo{Symbol: "600519"}, "1y")
	_ = a.Start()
	_ = a.AddReview(RoleTechnical, testContent("ok"), "技术分析师")

	err := a.FinalizeDecision(map[string]any{"rating": "买入"})
	var inv *InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvariantError, got %v", err)
	}
	if a.Status() == StatusCompleted {
		t.Fatalf("analysis completed without discussion")
	}
}

func TestFailIsTerminal(t *testing.T) {
	a := NewStockAnalysis(StockInfo{Symbol: "600519"}, "1y")
	_ = a.Start()
	if err := a.Fail("no analyst produced a review"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if a.Status() != StatusFailed {
		t.Fatalf("expected FAILED, got %s", a.Status())
	}
	if a.FailReason() != "no analyst produced a review" {
		t.Fatalf("fail reason not recorded")
	}
	if err := a.AddReview(RoleTechnical, testContent("late"), ""); err == nil {
		t.Fatalf("expected invariant error after FAILED")
	}
	if err := a.Start(); err == nil {
		t.Fatalf("expected invariant error restarting FAILED analysis")
	}
}

func TestReviewsReturnsSnapshot(t *testing.T) {
	a := NewStockAnalysis(StockInfo{Symbol: "600519"}, "1y")
	_ = a.Start()
	_ = a.AddReview(RoleTechnical, testContent("one"), "技术分析师")

	snapshot := a.Reviews()
	_ = a.AddReview(RoleFundamental, testContent("two"), "基本面分析师")

	if len(snapshot) != 1 {
		t.Fatalf("snapshot observed later mutation, len=%d", len(snapshot))
	}
}

func TestParseRoleRejectsUnknownKey(t *testing.T) {
	if _, err := ParseRole("technical"); err != nil {
		t.Fatalf("ParseRole(technical): %v", err)
	}

	_, err := ParseRole("astrology")
	var unknown *UnknownRoleError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownRoleError, got %v", err)
	}
	if unknown.Key != "astrology" {
		t.Fatalf("unexpected key %q", unknown.Key)
	}

	if _, err := ParseRoles([]string{"technical", "fundamental", "nope"}); err == nil {
		t.Fatalf("ParseRoles should reject unknown key")
	}
}
