package dataflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	lpquote "github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"
)

// LongportClient handles HK market data via the Longport OpenAPI. It
// implements MarketDataProvider; the optional signals are not available
// through Longport, so its OptionalDataProvider methods report "no data".
type LongportClient struct {
	quoteCtx *lpquote.QuoteContext
}

// NewLongportClient builds a client from API credentials. All three values
// are required.
func NewLongportClient(appKey, appSecret, accessToken string) (*LongportClient, error) {
	if appKey == "" || appSecret == "" || accessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(appKey, appSecret, accessToken))
	if err != nil {
		return nil, err
	}
	quoteContext, err := lpquote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{quoteCtx: quoteContext}, nil
}

// longportSymbol maps "0700" / "0700.HK" to the Longport "700.HK" form.
func longportSymbol(symbol string) string {
	symbol = NormalizeSymbol(symbol)
	symbol = strings.TrimSuffix(symbol, ".HK")
	symbol = strings.TrimLeft(symbol, "0")
	if symbol == "" {
		symbol = "0"
	}
	return symbol + ".HK"
}

func (lc *LongportClient) GetStockInfo(ctx context.Context, symbol string) (map[string]any, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	lpSymbol := longportSymbol(symbol)

	quotes, err := lc.quoteCtx.Quote(ctx, []string{lpSymbol})
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", lpSymbol, err)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no quote data for %s", lpSymbol)
	}
	q := quotes[0]

	statics, err := lc.quoteCtx.StaticInfo(ctx, []string{lpSymbol})
	name := ""
	if err == nil && len(statics) > 0 {
		name = statics[0].NameCn
	}

	price := decFloat(q.LastDone)
	open := decFloat(q.Open)
	high := decFloat(q.High)
	low := decFloat(q.Low)
	prevClose := decFloat(q.PrevClose)
	changePct := 0.0
	if prevClose != 0 {
		changePct = (price - prevClose) / prevClose * 100
	}

	return map[string]any{
		"symbol":         lpSymbol,
		"name":           name,
		"current_price":  price,
		"open":           open,
		"high":           high,
		"low":            low,
		"volume":         float64(q.Volume),
		"change_percent": changePct,
	}, nil
}

func (lc *LongportClient) GetKlines(ctx context.Context, symbol string, days int) ([]Kline, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	lpSymbol := longportSymbol(symbol)
	if days <= 0 {
		days = 250
	}

	sticks, err := lc.quoteCtx.Candlesticks(ctx, lpSymbol, lpquote.PeriodDay, int32(days), lpquote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("failed to get candlesticks for %s: %w", lpSymbol, err)
	}
	if len(sticks) == 0 {
		return nil, fmt.Errorf("no kline data for %s", lpSymbol)
	}

	result := make([]Kline, 0, len(sticks))
	for _, s := range sticks {
		result = append(result, Kline{
			Date:   time.Unix(s.Timestamp, 0).Format("2006-01-02"),
			Open:   decVal(s.Open),
			High:   decVal(s.High),
			Low:    decVal(s.Low),
			Close:  decVal(s.Close),
			Volume: s.Volume,
			Amount: decVal(s.Turnover),
		})
	}
	return result, nil
}

func decVal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func decFloat(d *decimal.Decimal) float64 {
	f, _ := decVal(d).Float64()
	return f
}

// 港股暂无资金流向、财务比率等可选数据源。
func (lc *LongportClient) GetFinancial(ctx context.Context, symbol string) (*FinancialData, error) {
	return nil, nil
}

func (lc *LongportClient) GetQuarterly(ctx context.Context, symbol string) (*QuarterlyData, error) {
	return nil, nil
}

func (lc *LongportClient) GetFundFlow(ctx context.Context, symbol string, days int) (*FundFlowData, error) {
	return nil, nil
}

func (lc *LongportClient) GetNews(ctx context.Context, symbol string, limit int) (*NewsData, error) {
	return nil, nil
}
