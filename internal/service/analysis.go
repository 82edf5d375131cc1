// Package service wires data providers, orchestrator and repository into
// the analyze use case and its batch variant.
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/domain"
)

// Performer runs the analysis pipeline on an aggregate.
type Performer interface {
	Perform(ctx context.Context, analysis *domain.StockAnalysis, bundle *dataflows.Bundle, enabledRoles []domain.AgentRole) error
}

// Repository persists finished and failed analyses.
type Repository interface {
	Save(ctx context.Context, a *domain.StockAnalysis) error
	FindByID(ctx context.Context, id string) (*domain.StockAnalysis, error)
}

// DataSource pairs the required and optional ports of one market.
type DataSource struct {
	Market   dataflows.MarketDataProvider
	Optional dataflows.OptionalDataProvider
}

type AnalysisService struct {
	performer Performer
	repo      Repository
	sources   map[dataflows.Market]DataSource
	klineDays int
}

func NewAnalysisService(performer Performer, repo Repository, sources map[dataflows.Market]DataSource, klineDays int) *AnalysisService {
	if klineDays <= 0 {
		klineDays = 250
	}
	return &AnalysisService{
		performer: performer,
		repo:      repo,
		sources:   sources,
		klineDays: klineDays,
	}
}

// AnalyzeRequest describes one analysis run. Empty EnabledRoles means all
// six analysts.
type AnalyzeRequest struct {
	Symbol       string
	Period       string
	EnabledRoles []string
}

// Analyze runs the full pipeline for one symbol and persists the outcome,
// including failed runs. The returned aggregate is always non-nil once the
// required data was fetched.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*domain.StockAnalysis, error) {
	roles, err := resolveRoles(req.EnabledRoles)
	if err != nil {
		return nil, err
	}

	market := dataflows.ClassifySymbol(req.Symbol)
	source, ok := s.sources[market]
	if !ok {
		return nil, fmt.Errorf("no data source configured for %s market", market)
	}

	info, err := source.Market.GetStockInfo(ctx, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch stock info: %w", err)
	}
	klines, err := source.Market.GetKlines(ctx, req.Symbol, s.klineDays)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}

	bundle := s.assembleBundle(ctx, source, req.Symbol, info, klines, roles)
	stock := stockInfoFrom(req.Symbol, info)

	analysis := domain.NewStockAnalysis(stock, req.Period)
	performErr := s.performer.Perform(ctx, analysis, bundle, roles)

	if saveErr := s.repo.Save(ctx, analysis); saveErr != nil {
		log.Printf("service: save analysis %s: %v", analysis.ID, saveErr)
		if performErr == nil {
			performErr = saveErr
		}
	}
	return analysis, performErr
}

// History returns a persisted analysis by record id.
func (s *AnalysisService) History(ctx context.Context, id string) (*domain.StockAnalysis, error) {
	return s.repo.FindByID(ctx, id)
}

func resolveRoles(keys []string) ([]domain.AgentRole, error) {
	if len(keys) == 0 {
		roles := make([]domain.AgentRole, len(domain.CanonicalRoles))
		copy(roles, domain.CanonicalRoles)
		return roles, nil
	}
	return domain.ParseRoles(keys)
}

// assembleBundle fetches optional data only for the roles that consume it.
// Optional fetch failures degrade to missing data.
func (s *AnalysisService) assembleBundle(ctx context.Context, source DataSource, symbol string, info map[string]any, klines []dataflows.Kline, roles []domain.AgentRole) *dataflows.Bundle {
	bundle := &dataflows.Bundle{
		StockInfo:  info,
		Klines:     klines,
		Indicators: dataflows.ComputeIndicators(klines),
	}
	if v, ok := info["change_percent"].(float64); ok {
		bundle.Indicators["change_percent"] = v
	}
	if v, ok := info["turnover_rate"].(float64); ok && v != 0 {
		bundle.Indicators["turnover_rate"] = v
	}

	enabled := make(map[domain.AgentRole]bool, len(roles))
	for _, role := range roles {
		enabled[role] = true
	}

	if enabled[domain.RoleFundamental] {
		bundle.Financial = optionalFetch(symbol, "financial", func() (*dataflows.FinancialData, error) {
			return source.Optional.GetFinancial(ctx, symbol)
		})
		bundle.Quarterly = optionalFetch(symbol, "quarterly", func() (*dataflows.QuarterlyData, error) {
			return source.Optional.GetQuarterly(ctx, symbol)
		})
	}
	if enabled[domain.RoleFundFlow] {
		bundle.FundFlow = optionalFetch(symbol, "fund flow", func() (*dataflows.FundFlowData, error) {
			return source.Optional.GetFundFlow(ctx, symbol, 10)
		})
	}
	if enabled[domain.RoleNewsAnalyst] {
		bundle.News = optionalFetch(symbol, "news", func() (*dataflows.NewsData, error) {
			return source.Optional.GetNews(ctx, symbol, 10)
		})
	}
	if enabled[domain.RoleMarketSentiment] {
		bundle.Sentiment = dataflows.ComputeSentiment(klines)
	}
	if enabled[domain.RoleRiskManagement] {
		bundle.Risk = dataflows.ComputeRisk(klines)
	}
	return bundle
}

func optionalFetch[T any](symbol, kind string, fetch func() (*T, error)) *T {
	data, err := fetch()
	if err != nil {
		log.Printf("service: optional %s data unavailable for %s: %v", kind, symbol, err)
		return nil
	}
	return data
}

func stockInfoFrom(symbol string, info map[string]any) domain.StockInfo {
	str := func(key string) string {
		v, _ := info[key].(string)
		return v
	}
	price, _ := info["current_price"].(float64)

	return domain.StockInfo{
		Symbol:       symbol,
		Name:         str("name"),
		Sector:       str("sector"),
		Industry:     str("industry"),
		CurrentPrice: price,
	}
}

// timeout guard shared with the batch runner
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
