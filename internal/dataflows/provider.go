package dataflows

import (
	"context"
	"regexp"
	"strings"
)

// Market identifies the exchange family a symbol belongs to, which decides
// the upstream data source.
type Market string

const (
	MarketCN Market = "CN" // A股, Eastmoney
	MarketHK Market = "HK" // 港股, Longport
	MarketUS Market = "US" // 美股, Yahoo Finance
)

var (
	cnSymbolRe = regexp.MustCompile(`^\d{6}$`)
	hkSymbolRe = regexp.MustCompile(`^\d{4,5}$`)
)

// ClassifySymbol maps a normalized symbol to its market. Six digits is an
// A-share code, four or five digits (optionally suffixed .HK) is Hong Kong,
// everything else is treated as a US ticker.
func ClassifySymbol(symbol string) Market {
	symbol = NormalizeSymbol(symbol)
	if strings.HasSuffix(symbol, ".HK") {
		return MarketHK
	}
	if cnSymbolRe.MatchString(symbol) {
		return MarketCN
	}
	if hkSymbolRe.MatchString(symbol) {
		return MarketHK
	}
	return MarketUS
}

// MarketDataProvider is the required data port. Analysis cannot proceed
// without a quote and a price series.
type MarketDataProvider interface {
	// GetStockInfo returns quote fields keyed the way the analyst prompts
	// expect (current_price, change_percent, pe_ratio, ...).
	GetStockInfo(ctx context.Context, symbol string) (map[string]any, error)
	// GetKlines returns up to days daily candles, oldest first.
	GetKlines(ctx context.Context, symbol string, days int) ([]Kline, error)
}

// OptionalDataProvider is the best-effort data port. A nil result with a
// nil error means the source has no data for this symbol, the analysts
// degrade instead of failing.
type OptionalDataProvider interface {
	GetFinancial(ctx context.Context, symbol string) (*FinancialData, error)
	GetQuarterly(ctx context.Context, symbol string) (*QuarterlyData, error)
	GetFundFlow(ctx context.Context, symbol string, days int) (*FundFlowData, error)
	GetNews(ctx context.Context, symbol string, limit int) (*NewsData, error)
}
