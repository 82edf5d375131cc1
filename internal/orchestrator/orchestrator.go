// Package orchestrator drives the analysis pipeline: fan out the enabled
// analyst tasks, merge their reviews into the aggregate on the coordinating
// goroutine, then run the team discussion and the final decision serially.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/errgroup"

	"github.com/SPYQWER1/aiagents-stock/internal/agents"
	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/decision"
	"github.com/SPYQWER1/aiagents-stock/internal/domain"
	"github.com/SPYQWER1/aiagents-stock/internal/llm"
)

// ErrNoReviews is returned when every analyst task failed; the aggregate is
// moved to FAILED instead of completing with an empty review set.
var ErrNoReviews = errors.New("no analyst produced a review")

const (
	// worker pool is sized to the enabled roles, capped here
	maxWorkers = 6

	defaultAnalystTimeout = 5 * time.Minute
)

type Orchestrator struct {
	gateway        llm.Gateway
	agents         map[domain.AgentRole]agents.Analyst
	parser         *decision.Parser
	analystTimeout time.Duration
}

type Option func(*Orchestrator)

// WithAnalystTimeout bounds each fan-out task. A timed-out task is treated
// as a missing review, it does not block the others.
func WithAnalystTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.analystTimeout = d
		}
	}
}

func New(gateway llm.Gateway, table map[domain.AgentRole]agents.Analyst, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gateway:        gateway,
		agents:         table,
		parser:         decision.NewParser(gateway),
		analystTimeout: defaultAnalystTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// taskResult is the explicit outcome of one analyst task. Failures never
// cross the fan-out boundary as raised errors.
type taskResult struct {
	role   domain.AgentRole
	review *domain.AgentReview
	err    error
}

// Perform runs the full pipeline on the aggregate. The aggregate is only
// ever touched by the calling goroutine; worker tasks return values.
func (o *Orchestrator) Perform(ctx context.Context, analysis *domain.StockAnalysis, bundle *dataflows.Bundle, enabledRoles []domain.AgentRole) error {
	if err := analysis.Start(); err != nil {
		return err
	}

	results := o.fanOut(ctx, analysis.Stock, bundle, enabledRoles)

	for _, res := range results {
		switch {
		case res.err != nil:
			log.Printf("orchestrator: analyst %s failed: %v", res.role, res.err)
		case res.review == nil:
			log.Printf("orchestrator: analyst %s produced no review (no data)", res.role)
		default:
			if err := analysis.AddReview(res.role, res.review.Content, res.review.AgentName); err != nil {
				return err
			}
		}
	}

	if len(analysis.Reviews()) == 0 {
		if err := analysis.Fail("no analyst produced a review"); err != nil {
			return err
		}
		return ErrNoReviews
	}

	if err := o.conductDiscussion(ctx, analysis); err != nil {
		return err
	}
	return o.makeFinalDecision(ctx, analysis, bundle)
}

func (o *Orchestrator) fanOut(ctx context.Context, stock domain.StockInfo, bundle *dataflows.Bundle, enabledRoles []domain.AgentRole) []taskResult {
	results := make([]taskResult, len(enabledRoles))

	workers := len(enabledRoles)
	if workers > maxWorkers {
		workers = maxWorkers
	}
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i, role := range enabledRoles {
		i, role := i, role
		analyst, ok := o.agents[role]
		if !ok {
			results[i] = taskResult{role: role, err: fmt.Errorf("no analyst registered for role %s", role)}
			continue
		}
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(ctx, o.analystTimeout)
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					results[i] = taskResult{role: role, err: fmt.Errorf("analyst panicked: %v", r)}
				}
			}()

			review, err := analyst.Analyze(taskCtx, stock, bundle)
			results[i] = taskResult{role: role, review: review, err: err}
			return nil
		})
	}

	// Task outcomes are captured per slot; Wait never returns an error.
	_ = g.Wait()
	return results
}

// conductDiscussion summarizes the present reviews in canonical role order,
// so the discussion prompt is deterministic regardless of task scheduling.
func (o *Orchestrator) conductDiscussion(ctx context.Context, analysis *domain.StockAnalysis) error {
	reviews := analysis.Reviews()

	var summary strings.Builder
	for _, role := range domain.CanonicalRoles {
		review, ok := reviews[role]
		if !ok {
			continue
		}
		fmt.Fprintf(&summary, "\n【%s】:\n%s\n", review.AgentName, review.Content.Summary)
	}

	prompt := fmt.Sprintf(discussionPromptTpl, analysis.Stock.Symbol, analysis.Stock.Name, summary.String())
	text, err := o.callGateway(ctx, discussionPersona, prompt, llm.DefaultOptions())
	if err != nil {
		if failErr := analysis.Fail(fmt.Sprintf("team discussion failed: %v", err)); failErr != nil {
			return failErr
		}
		return fmt.Errorf("team discussion: %w", err)
	}

	return analysis.ConductDiscussion(text)
}

func (o *Orchestrator) makeFinalDecision(ctx context.Context, analysis *domain.StockAnalysis, bundle *dataflows.Bundle) error {
	prompt := fmt.Sprintf(decisionPromptTpl,
		analysis.Stock.Symbol, analysis.Stock.Name,
		strconv.FormatFloat(analysis.Stock.CurrentPrice, 'f', 2, 64),
		analysis.TeamDiscussion(),
		indicatorOrNA(bundle, "ma20"),
		indicatorOrNA(bundle, "bb_upper"),
		indicatorOrNA(bundle, "bb_lower"),
	)

	raw, err := o.callGateway(ctx, decisionPersona, prompt, llm.DefaultOptions())
	if err != nil {
		if failErr := analysis.Fail(fmt.Sprintf("final decision failed: %v", err)); failErr != nil {
			return failErr
		}
		return fmt.Errorf("final decision: %w", err)
	}

	return analysis.FinalizeDecision(o.parser.Parse(ctx, raw))
}

func (o *Orchestrator) callGateway(ctx context.Context, persona, prompt string, opts llm.GenerateOptions) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(persona),
		schema.UserMessage(prompt),
	}
	return o.gateway.Generate(ctx, messages, opts)
}

func indicatorOrNA(bundle *dataflows.Bundle, key string) string {
	if bundle != nil && bundle.Indicators != nil {
		if v, ok := bundle.Indicators[key]; ok {
			return strconv.FormatFloat(v, 'f', 2, 64)
		}
	}
	return "N/A"
}
