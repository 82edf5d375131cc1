package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/SPYQWER1/aiagents-stock/config"
	"github.com/SPYQWER1/aiagents-stock/internal/agents"
	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/llm"
	"github.com/SPYQWER1/aiagents-stock/internal/orchestrator"
	"github.com/SPYQWER1/aiagents-stock/internal/service"
	"github.com/SPYQWER1/aiagents-stock/internal/storage/sqlite"
)

// app holds the wired dependency graph shared by every subcommand.
type app struct {
	cfg      *config.Config
	repo     *sqlite.Repository
	analysis *service.AnalysisService
	batch    *service.BatchService
}

// buildApp constructs the full pipeline from configuration: data sources by
// market, the DeepSeek gateway, the analyst table, the orchestrator and the
// sqlite repository.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}

	gateway, err := llm.NewDeepSeekGateway(ctx, llm.DeepSeekConfig{
		APIKey:  cfg.DeepSeekAPIKey,
		BaseURL: cfg.DeepSeekBaseURL,
		Model:   cfg.DeepSeekModel,
	})
	if err != nil {
		return nil, fmt.Errorf("init deepseek gateway: %w", err)
	}

	performer := orchestrator.New(gateway, agents.BuildAgents(gateway),
		orchestrator.WithAnalystTimeout(time.Duration(cfg.AnalystTimeoutSec)*time.Second))

	repo, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sources := make(map[dataflows.Market]service.DataSource)
	em := dataflows.NewEastmoneyClient(cfg.DataCacheDir, cfg.CacheEnabled)
	sources[dataflows.MarketCN] = service.DataSource{Market: em, Optional: em}
	ya := dataflows.NewYahooClient(cfg.DataCacheDir, cfg.CacheEnabled)
	sources[dataflows.MarketUS] = service.DataSource{Market: ya, Optional: ya}

	// 港股行情需要长桥凭证，没有配置时只是少一个市场，不阻塞启动。
	if cfg.LongportAppKey != "" {
		lp, err := dataflows.NewLongportClient(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken)
		if err != nil {
			log.Printf("cli: longport unavailable, HK market disabled: %v", err)
		} else {
			sources[dataflows.MarketHK] = service.DataSource{Market: lp, Optional: lp}
		}
	}

	analysis := service.NewAnalysisService(performer, repo, sources, cfg.KlineDays)
	batch := service.NewBatchService(analysis, cfg.BatchWorkers, time.Duration(cfg.BatchTimeoutSec)*time.Second)

	return &app{
		cfg:      cfg,
		repo:     repo,
		analysis: analysis,
		batch:    batch,
	}, nil
}

func (a *app) Close() error {
	return a.repo.Close()
}
