// Package dataflows implements the market data and optional data provider
// ports: Eastmoney for A-shares, Yahoo Finance for US symbols, Longport for
// HK symbols, plus the locally computed technical indicators the analysts
// consume. "No data" from an optional source is a nil value, not an error.
package dataflows

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kline is one daily candle.
type Kline struct {
	Date         string          `json:"date"`
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Close        decimal.Decimal `json:"close"`
	Volume       int64           `json:"volume"`
	Amount       decimal.Decimal `json:"amount"`
	TurnoverRate float64         `json:"turnover_rate"`
}

// FinancialData carries the valuation/profitability ratios used by the
// fundamental analyst, keyed by their Chinese display names.
type FinancialData struct {
	Ratios map[string]string `json:"ratios"`
}

// QuarterlyReport is one reporting period row.
type QuarterlyReport struct {
	Period     string `json:"period"`
	Revenue    string `json:"revenue"`
	RevenueYoY string `json:"revenue_yoy"`
	NetProfit  string `json:"net_profit"`
	ProfitYoY  string `json:"profit_yoy"`
	EPS        string `json:"eps"`
	ROE        string `json:"roe"`
}

// QuarterlyData holds the most recent reporting periods, newest first.
type QuarterlyData struct {
	Reports []QuarterlyReport `json:"reports"`
}

// FormatForAI renders the quarterly rows for prompt consumption.
func (q *QuarterlyData) FormatForAI() string {
	var sb strings.Builder
	for _, r := range q.Reports {
		fmt.Fprintf(&sb, "- %s: 营业收入 %s（同比 %s），净利润 %s（同比 %s），每股收益 %s，净资产收益率 %s\n",
			r.Period, r.Revenue, r.RevenueYoY, r.NetProfit, r.ProfitYoY, r.EPS, r.ROE)
	}
	return sb.String()
}

// FundFlowDay is one day of main-force money flow, amounts in 元.
type FundFlowDay struct {
	Date       string          `json:"date"`
	MainNet    decimal.Decimal `json:"main_net"`
	SuperNet   decimal.Decimal `json:"super_net"`
	LargeNet   decimal.Decimal `json:"large_net"`
	MediumNet  decimal.Decimal `json:"medium_net"`
	SmallNet   decimal.Decimal `json:"small_net"`
	MainNetPct float64         `json:"main_net_pct"`
}

// FundFlowData holds recent trading days of money flow, oldest first.
type FundFlowData struct {
	Days []FundFlowDay `json:"days"`
}

// FormatForAI renders the flow rows for prompt consumption, amounts in 万元.
func (f *FundFlowData) FormatForAI() string {
	var sb strings.Builder
	wan := decimal.NewFromInt(10000)
	for _, d := range f.Days {
		fmt.Fprintf(&sb, "- %s: 主力净流入 %s万（占比 %.2f%%），超大单 %s万，大单 %s万，中单 %s万，小单 %s万\n",
			d.Date,
			d.MainNet.Div(wan).Round(1), d.MainNetPct,
			d.SuperNet.Div(wan).Round(1), d.LargeNet.Div(wan).Round(1),
			d.MediumNet.Div(wan).Round(1), d.SmallNet.Div(wan).Round(1))
	}
	return sb.String()
}

// SentimentData carries the ARBR readings computed from the price series.
type SentimentData struct {
	AR     float64 `json:"ar"`
	BR     float64 `json:"br"`
	Window int     `json:"window"`
	Phase  string  `json:"phase"`
}

// FormatForAI renders the ARBR reading for prompt consumption.
func (s *SentimentData) FormatForAI() string {
	return fmt.Sprintf("- AR(人气指标, %d日): %.2f\n- BR(意愿指标, %d日): %.2f\n- 情绪阶段判断: %s\n",
		s.Window, s.AR, s.Window, s.BR, s.Phase)
}

// NewsItem is one headline.
type NewsItem struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	Time   string `json:"time"`
	Digest string `json:"digest"`
	URL    string `json:"url"`
}

// NewsData holds recent headlines, newest first.
type NewsData struct {
	Items []NewsItem `json:"items"`
}

// FormatForAI renders the headlines for prompt consumption.
func (n *NewsData) FormatForAI() string {
	var sb strings.Builder
	for i, item := range n.Items {
		fmt.Fprintf(&sb, "%d. [%s %s] %s\n", i+1, item.Source, item.Time, item.Title)
		if item.Digest != "" {
			fmt.Fprintf(&sb, "   摘要: %s\n", item.Digest)
		}
	}
	return sb.String()
}

// RiskData carries risk statistics computed from the price series.
type RiskData struct {
	AnnualVolatility float64  `json:"annual_volatility"`
	MaxDrawdown      float64  `json:"max_drawdown"`
	Flags            []string `json:"flags"`
}

// FormatForAI renders the risk statistics for prompt consumption.
func (r *RiskData) FormatForAI() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- 年化波动率: %.2f%%\n- 区间最大回撤: %.2f%%\n", r.AnnualVolatility, r.MaxDrawdown)
	for _, flag := range r.Flags {
		fmt.Fprintf(&sb, "- 风险提示: %s\n", flag)
	}
	return sb.String()
}

// Bundle is the aggregate of market, financial and optional signal data
// passed into the analyst variants. Owned by the calling use case.
type Bundle struct {
	StockInfo  map[string]any
	Klines     []Kline
	Indicators map[string]float64

	Financial *FinancialData
	Quarterly *QuarterlyData
	FundFlow  *FundFlowData
	Sentiment *SentimentData
	News      *NewsData
	Risk      *RiskData
}
