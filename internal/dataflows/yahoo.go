package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"
)

// YahooClient handles US market data via Yahoo Finance. It implements
// MarketDataProvider; the optional signals have no Yahoo source here, so
// its OptionalDataProvider methods report "no data".
type YahooClient struct {
	cache *CacheManager
}

func NewYahooClient(cacheDir string, cacheEnabled bool) *YahooClient {
	return &YahooClient{
		cache: NewCacheManager(filepath.Join(cacheDir, "yahoo"), 1*time.Hour, cacheEnabled),
	}
}

func (yc *YahooClient) GetStockInfo(ctx context.Context, symbol string) (map[string]any, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached map[string]any
	if yc.cache.Get("yahoo", "quote", symbol, &cached) {
		return cached, nil
	}

	var info map[string]any
	err := WithRetry(DefaultRetryConfig(), func() error {
		// equity 才带估值字段 (TrailingPE/MarketCap/EPS)，quote 没有。
		q, err := equity.Get(symbol)
		if err != nil {
			return fmt.Errorf("failed to get equity for %s: %w", symbol, err)
		}
		if q == nil {
			return fmt.Errorf("no equity data for %s", symbol)
		}

		info = map[string]any{
			"symbol":         symbol,
			"name":           q.ShortName,
			"current_price":  q.RegularMarketPrice,
			"open":           q.RegularMarketOpen,
			"high":           q.RegularMarketDayHigh,
			"low":            q.RegularMarketDayLow,
			"volume":         float64(q.RegularMarketVolume),
			"change_percent": q.RegularMarketChangePercent,
			"pe_ratio":       q.TrailingPE,
			"market_cap":     float64(q.MarketCap),
			"eps":            q.EpsTrailingTwelveMonths,
			"exchange":       q.FullExchangeName,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	yc.cache.Set("yahoo", "quote", symbol, info)
	return info, nil
}

func (yc *YahooClient) GetKlines(ctx context.Context, symbol string, days int) ([]Kline, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)
	if days <= 0 {
		days = 250
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days*7/5-10) // trading days to calendar days

	cacheKey := map[string]interface{}{"symbol": symbol, "days": days}
	var cached []Kline
	if yc.cache.Get("yahoo", "kline", cacheKey, &cached) {
		return cached, nil
	}

	var result []Kline
	err := WithRetry(DefaultRetryConfig(), func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)
		result = result[:0]
		for iter.Next() {
			bar := iter.Bar()
			result = append(result, Kline{
				Date:   time.Unix(int64(bar.Timestamp), 0).Format("2006-01-02"),
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: int64(bar.Volume),
				Amount: bar.Close.Mul(decimal.NewFromInt(int64(bar.Volume))),
			})
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
		}
		if len(result) == 0 {
			return fmt.Errorf("no kline data for %s", symbol)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result) > days {
		result = result[len(result)-days:]
	}
	yc.cache.Set("yahoo", "kline", cacheKey, result)
	return result, nil
}

// 美股暂无资金流向、财务比率等可选数据源。
func (yc *YahooClient) GetFinancial(ctx context.Context, symbol string) (*FinancialData, error) {
	return nil, nil
}

func (yc *YahooClient) GetQuarterly(ctx context.Context, symbol string) (*QuarterlyData, error) {
	return nil, nil
}

func (yc *YahooClient) GetFundFlow(ctx context.Context, symbol string, days int) (*FundFlowData, error) {
	return nil, nil
}

func (yc *YahooClient) GetNews(ctx context.Context, symbol string, limit int) (*NewsData, error) {
	return nil, nil
}
