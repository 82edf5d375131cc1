package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SPYQWER1/aiagents-stock/internal/domain"
)

// ErrAnalysisTimeout marks a per-symbol batch task that ran past its
// deadline. 对应批量模式下的"分析超时"。
var ErrAnalysisTimeout = errors.New("分析超时")

const (
	defaultBatchWorkers = 3
	defaultBatchTimeout = 10 * time.Minute
)

// BatchResult is the outcome of one symbol in a batch run. Err is set for
// failed or timed-out symbols; the other symbols are unaffected.
type BatchResult struct {
	Symbol   string
	Analysis *domain.StockAnalysis
	Err      error
}

type BatchService struct {
	analysis      *AnalysisService
	workers       int
	symbolTimeout time.Duration
}

func NewBatchService(analysis *AnalysisService, workers int, symbolTimeout time.Duration) *BatchService {
	if workers <= 0 {
		workers = defaultBatchWorkers
	}
	if symbolTimeout <= 0 {
		symbolTimeout = defaultBatchTimeout
	}
	return &BatchService{
		analysis:      analysis,
		workers:       workers,
		symbolTimeout: symbolTimeout,
	}
}

// Run analyzes each symbol on a bounded worker pool. Results are returned
// in input order; individual failures never abort the batch.
func (b *BatchService) Run(ctx context.Context, symbols []string, period string, enabledRoles []string) []BatchResult {
	results := make([]BatchResult, len(symbols))

	g := new(errgroup.Group)
	g.SetLimit(b.workers)

	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			taskCtx, cancel := withTimeout(ctx, b.symbolTimeout)
			defer cancel()

			analysis, err := b.analysis.Analyze(taskCtx, AnalyzeRequest{
				Symbol:       symbol,
				Period:       period,
				EnabledRoles: enabledRoles,
			})
			if err != nil && errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %s", ErrAnalysisTimeout, symbol)
			}
			if err != nil {
				log.Printf("batch: %s failed: %v", symbol, err)
			}
			results[i] = BatchResult{Symbol: symbol, Analysis: analysis, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
