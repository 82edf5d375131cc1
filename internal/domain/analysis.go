// Package domain holds the stock analysis aggregate and its value objects.
// All mutations of an analysis flow through StockAnalysis so the ordering
// invariants (reviews before discussion, discussion before decision) hold
// no matter who constructed the instance.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StockInfo 股票基本信息值对象
type StockInfo struct {
	Symbol       string
	Name         string
	Sector       string
	Industry     string
	CurrentPrice float64
}

// AnalysisContent is the immutable output of one analyst task.
type AnalysisContent struct {
	Summary    string
	Details    map[string]any
	FocusAreas []string
	RawOutput  string
}

// AgentReview records one analyst's finished review. Created exactly once
// per successful task, never mutated afterwards.
type AgentReview struct {
	Role      AgentRole
	Content   AnalysisContent
	AgentName string
	Timestamp time.Time
}

// Status is the lifecycle state of a StockAnalysis.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// InvariantError reports an out-of-order operation on the aggregate. It is
// a programming-contract violation, fatal to the request, never retried.
type InvariantError struct {
	Op     string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("analysis invariant violated in %s: %s", e.Op, e.Reason)
}

// StockAnalysis 聚合根：单股分析
type StockAnalysis struct {
	ID        string
	Stock     StockInfo
	Period    string
	CreatedAt time.Time
	UpdatedAt time.Time

	reviews        map[AgentRole]AgentReview
	teamDiscussion string
	finalDecision  map[string]any
	status         Status
	failReason     string
}

// NewStockAnalysis creates an aggregate in CREATED state.
func NewStockAnalysis(stock StockInfo, period string) *StockAnalysis {
	now := time.Now()
	return &StockAnalysis{
		ID:        uuid.NewString(),
		Stock:     stock,
		Period:    period,
		CreatedAt: now,
		UpdatedAt: now,
		reviews:   make(map[AgentRole]AgentReview),
		status:    StatusCreated,
	}
}

// NewStockAnalysisWithID reconstructs the identity of a persisted aggregate.
// The caller replays reviews, discussion and decision through the normal
// operations so a read-back instance obeys the same invariants.
func NewStockAnalysisWithID(id string, stock StockInfo, period string) *StockAnalysis {
	a := NewStockAnalysis(stock, period)
	if id != "" {
		a.ID = id
	}
	return a
}

func (a *StockAnalysis) Status() Status { return a.status }

// FailReason returns the reason recorded by Fail, empty otherwise.
func (a *StockAnalysis) FailReason() string { return a.failReason }

// TeamDiscussion returns the discussion text, empty if not yet conducted.
func (a *StockAnalysis) TeamDiscussion() string { return a.teamDiscussion }

// FinalDecision returns the decision map, nil if not yet finalized.
func (a *StockAnalysis) FinalDecision() map[string]any { return a.finalDecision }

// Reviews returns a snapshot copy; later mutations of the aggregate are not
// observable through it.
func (a *StockAnalysis) Reviews() map[AgentRole]AgentReview {
	out := make(map[AgentRole]AgentReview, len(a.reviews))
	for role, review := range a.reviews {
		out[role] = review
	}
	return out
}

func (a *StockAnalysis) terminal() bool {
	return a.status == StatusCompleted || a.status == StatusFailed
}

// Start moves CREATED to IN_PROGRESS. Calling it again while IN_PROGRESS is
// a no-op; starting a terminal analysis is an invariant violation.
func (a *StockAnalysis) Start() error {
	if a.terminal() {
		return &InvariantError{Op: "start", Reason: fmt.Sprintf("analysis is %s", a.status)}
	}
	a.status = StatusInProgress
	a.UpdatedAt = time.Now()
	return nil
}

// AddReview records one analyst's review. At most one review per role; a
// second write for the same role replaces the first.
func (a *StockAnalysis) AddReview(role AgentRole, content AnalysisContent, agentName string) error {
	if a.terminal() {
		return &InvariantError{Op: "add_review", Reason: fmt.Sprintf("analysis is %s", a.status)}
	}
	a.reviews[role] = AgentReview{
		Role:      role,
		Content:   content,
		AgentName: agentName,
		Timestamp: time.Now(),
	}
	a.status = StatusInProgress
	a.UpdatedAt = time.Now()
	return nil
}

// ConductDiscussion records the team discussion text. Requires at least one
// review.
func (a *StockAnalysis) ConductDiscussion(text string) error {
	if a.terminal() {
		return &InvariantError{Op: "conduct_discussion", Reason: fmt.Sprintf("analysis is %s", a.status)}
	}
	if len(a.reviews) == 0 {
		return &InvariantError{Op: "conduct_discussion", Reason: "no reviews exist"}
	}
	a.teamDiscussion = text
	a.UpdatedAt = time.Now()
	return nil
}

// FinalizeDecision records the structured decision and completes the
// analysis. This is the only transition into COMPLETED and it is terminal.
func (a *StockAnalysis) FinalizeDecision(decision map[string]any) error {
	if a.terminal() {
		return &InvariantError{Op: "finalize_decision", Reason: fmt.Sprintf("analysis is %s", a.status)}
	}
	if a.teamDiscussion == "" {
		return &InvariantError{Op: "finalize_decision", Reason: "no team discussion exists"}
	}
	a.finalDecision = decision
	a.status = StatusCompleted
	a.UpdatedAt = time.Now()
	return nil
}

// Fail moves any non-terminal analysis to FAILED.
func (a *StockAnalysis) Fail(reason string) error {
	if a.terminal() {
		return &InvariantError{Op: "fail", Reason: fmt.Sprintf("analysis is %s", a.status)}
	}
	a.status = StatusFailed
	a.failReason = reason
	a.UpdatedAt = time.Now()
	return nil
}
