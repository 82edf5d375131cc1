package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/domain"
	"github.com/SPYQWER1/aiagents-stock/internal/llm"
)

// FundamentalAnalyst 基本面分析师
type FundamentalAnalyst struct {
	gateway llm.Gateway
}

func (a *FundamentalAnalyst) Role() domain.AgentRole { return domain.RoleFundamental }
func (a *FundamentalAnalyst) Name() string           { return "基本面分析师" }

func (a *FundamentalAnalyst) Analyze(ctx context.Context, stock domain.StockInfo, bundle *dataflows.Bundle) (*domain.AgentReview, error) {
	var ratios map[string]string
	if bundle.Financial != nil {
		ratios = bundle.Financial.Ratios
	}

	financialSection := ""
	if len(ratios) > 0 {
		financialSection = a.formatFinancialRatios(ratios, stock)
	}

	quarterlySection := ""
	if bundle.Quarterly != nil && len(bundle.Quarterly.Reports) > 0 {
		quarterlySection = fmt.Sprintf("\n【最近%d期季报详细数据】\n%s\n以上是最近几期季度财务报告，请重点基于这些数据进行趋势分析。\n",
			len(bundle.Quarterly.Reports), bundle.Quarterly.FormatForAI())
	}

	prompt := fmt.Sprintf(fundamentalPromptTpl,
		stock.Symbol, stringOrNA(stock.Name),
		stringOrNA(stock.Industry), stringOrNA(stock.Sector),
		ratioOrNA(ratios, "市盈率"), ratioOrNA(ratios, "市净率"),
		ratioOrNA(ratios, "总市值"), ratioOrNA(ratios, "流通市值"),
		financialSection, quarterlySection,
	)

	text, err := callGateway(ctx, a.gateway, fundamentalPersona, prompt, llm.GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   2500,
	})
	if err != nil {
		return nil, err
	}

	return newReview(a.Role(), a.Name(), text, []string{"财务指标", "行业分析", "公司价值", "成长性", "季报趋势"}), nil
}

func (a *FundamentalAnalyst) formatFinancialRatios(ratios map[string]string, stock domain.StockInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**股票代码**: %s | **名称**: %s\n", stock.Symbol, stock.Name)
	fmt.Fprintf(&sb, "**行业**: %s | **板块**: %s\n", stock.Industry, stock.Sector)

	sections := []struct {
		title string
		keys  []string
	}{
		{"【主要估值指标】", []string{"市盈率", "市净率", "总市值", "流通市值", "每股收益", "每股净资产"}},
		{"【盈利能力】", []string{"净资产收益率", "总资产净利率", "毛利率", "净利率"}},
		{"【成长能力】", []string{"营业收入同比增长", "净利润同比增长"}},
	}
	for _, sec := range sections {
		sb.WriteString("\n" + sec.title + "\n")
		for _, k := range sec.keys {
			if v, ok := ratios[k]; ok {
				fmt.Fprintf(&sb, "- %s: %s\n", k, v)
			}
		}
	}
	return sb.String()
}
