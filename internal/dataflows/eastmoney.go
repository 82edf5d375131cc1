package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// EastmoneyClient handles A-share data via the Eastmoney push2 endpoints.
// It implements both MarketDataProvider and OptionalDataProvider.
type EastmoneyClient struct {
	client *resty.Client
	cache  *CacheManager
}

func NewEastmoneyClient(cacheDir string, cacheEnabled bool) *EastmoneyClient {
	cache := NewCacheManager(filepath.Join(cacheDir, "eastmoney"), 1*time.Hour, cacheEnabled)

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; aiagents-stock/1.0)")
	client.SetHeader("Referer", "https://quote.eastmoney.com/")

	return &EastmoneyClient{
		client: client,
		cache:  cache,
	}
}

// secID maps a 6-digit A-share code to the push2 secid form.
// 6/9 开头为沪市，5 开头为沪市基金，其余为深市/北交所。
func secID(symbol string) string {
	switch {
	case strings.HasPrefix(symbol, "6"), strings.HasPrefix(symbol, "9"), strings.HasPrefix(symbol, "5"):
		return "1." + symbol
	default:
		return "0." + symbol
	}
}

type push2Envelope struct {
	Data json.RawMessage `json:"data"`
}

// quoteFields are the push2 stock/get fields the analysts consume.
// Price-like fields come back scaled by 100.
const quoteFields = "f43,f44,f45,f46,f47,f48,f55,f57,f58,f84,f85,f92,f116,f117,f162,f167,f168,f170,f127"

func (ec *EastmoneyClient) GetStockInfo(ctx context.Context, symbol string) (map[string]any, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached map[string]any
	if ec.cache.Get("eastmoney", "quote", symbol, &cached) {
		return cached, nil
	}

	var payload json.RawMessage
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := ec.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"secid":   secID(symbol),
				"fields":  quoteFields,
				"invt":    "2",
				"fltt":    "1",
			}).
			Get("https://push2.eastmoney.com/api/qt/stock/get")
		if err != nil {
			return fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("quote API error %d: %s", resp.StatusCode(), resp.String())
		}

		var env push2Envelope
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return fmt.Errorf("failed to parse quote response: %w", err)
		}
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return fmt.Errorf("no quote data for %s", symbol)
		}
		payload = env.Data
		return nil
	})
	if err != nil {
		return nil, err
	}

	info, err := parseQuotePayload(symbol, payload)
	if err != nil {
		return nil, err
	}

	ec.cache.Set("eastmoney", "quote", symbol, info)
	return info, nil
}

// parseQuotePayload 把 push2 报价对象转成分析师使用的字段。数值字段和
// 名称/行业等字符串字段混在同一个对象里，缺失时东财会返回 "-"。
func parseQuotePayload(symbol string, data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse quote payload: %w", err)
	}

	num := func(key string, scale float64) float64 {
		switch v := raw[key].(type) {
		case float64:
			return v / scale
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return 0
			}
			return f / scale
		default:
			return 0
		}
	}
	str := func(key string) string {
		if v, ok := raw[key].(string); ok && v != "-" {
			return v
		}
		return ""
	}

	return map[string]any{
		"symbol":         symbol,
		"name":           str("f58"),
		"industry":       str("f127"),
		"current_price":  num("f43", 100),
		"high":           num("f44", 100),
		"low":            num("f45", 100),
		"open":           num("f46", 100),
		"volume":         num("f47", 1),
		"amount":         num("f48", 1),
		"eps":            num("f55", 100),
		"total_shares":   num("f84", 1),
		"float_shares":   num("f85", 1),
		"bps":            num("f92", 100),
		"market_cap":     num("f116", 1),
		"float_cap":      num("f117", 1),
		"pe_ratio":       num("f162", 100),
		"pb_ratio":       num("f167", 100),
		"turnover_rate":  num("f168", 100),
		"change_percent": num("f170", 100),
	}, nil
}

func (ec *EastmoneyClient) GetKlines(ctx context.Context, symbol string, days int) ([]Kline, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)
	if days <= 0 {
		days = 250
	}

	cacheKey := map[string]interface{}{"symbol": symbol, "days": days}
	var cached []Kline
	if ec.cache.Get("eastmoney", "kline", cacheKey, &cached) {
		return cached, nil
	}

	var result []Kline
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := ec.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"secid":   secID(symbol),
				"klt":     "101", // 日K
				"fqt":     "1",   // 前复权
				"lmt":     strconv.Itoa(days),
				"end":     "20500101",
				"fields1": "f1,f2,f3",
				"fields2": "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61",
			}).
			Get("https://push2his.eastmoney.com/api/qt/stock/kline/get")
		if err != nil {
			return fmt.Errorf("failed to fetch klines for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("kline API error %d: %s", resp.StatusCode(), resp.String())
		}

		var env push2Envelope
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return fmt.Errorf("failed to parse kline response: %w", err)
		}
		var data struct {
			Klines []string `json:"klines"`
		}
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return fmt.Errorf("no kline data for %s", symbol)
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fmt.Errorf("failed to parse kline rows: %w", err)
		}

		result = make([]Kline, 0, len(data.Klines))
		for _, row := range data.Klines {
			k, err := parseKlineRow(row)
			if err != nil {
				continue
			}
			result = append(result, k)
		}
		if len(result) == 0 {
			return fmt.Errorf("no kline data for %s", symbol)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ec.cache.Set("eastmoney", "kline", cacheKey, result)
	return result, nil
}

// parseKlineRow parses one "date,open,close,high,low,volume,amount,amplitude,
// pct_change,change,turnover" row.
func parseKlineRow(row string) (Kline, error) {
	parts := strings.Split(row, ",")
	if len(parts) < 11 {
		return Kline{}, fmt.Errorf("malformed kline row: %s", row)
	}
	open, err := decimal.NewFromString(parts[1])
	if err != nil {
		return Kline{}, err
	}
	close_, err := decimal.NewFromString(parts[2])
	if err != nil {
		return Kline{}, err
	}
	high, err := decimal.NewFromString(parts[3])
	if err != nil {
		return Kline{}, err
	}
	low, err := decimal.NewFromString(parts[4])
	if err != nil {
		return Kline{}, err
	}
	volume, _ := strconv.ParseInt(parts[5], 10, 64)
	amount, _ := decimal.NewFromString(parts[6])
	turnover, _ := strconv.ParseFloat(parts[10], 64)

	return Kline{
		Date:         parts[0],
		Open:         open,
		Close:        close_,
		High:         high,
		Low:          low,
		Volume:       volume,
		Amount:       amount,
		TurnoverRate: turnover,
	}, nil
}

// reportRow is one RPT_LICO_FN_CPD row from the datacenter API.
type reportRow struct {
	ReportDate string  `json:"REPORTDATE"`
	Revenue    float64 `json:"TOTAL_OPERATE_INCOME"`
	RevenueYoY float64 `json:"YSTZ"`
	NetProfit  float64 `json:"PARENT_NETPROFIT"`
	ProfitYoY  float64 `json:"SJLTZ"`
	BasicEPS   float64 `json:"BASIC_EPS"`
	ROE        float64 `json:"WEIGHTAVG_ROE"`
	GrossPct   float64 `json:"XSMLL"`
	NetPct     float64 `json:"XSJLL"`
}

func (ec *EastmoneyClient) fetchReports(ctx context.Context, symbol string) ([]reportRow, error) {
	var cached []reportRow
	if ec.cache.Get("eastmoney", "reports", symbol, &cached) {
		return cached, nil
	}

	var rows []reportRow
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := ec.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"reportName": "RPT_LICO_FN_CPD",
				"columns":    "ALL",
				"filter":     fmt.Sprintf(`(SECURITY_CODE="%s")`, symbol),
				"sortColumns": "REPORTDATE",
				"sortTypes":  "-1",
				"pageSize":   "8",
			}).
			Get("https://datacenter-web.eastmoney.com/api/data/v1/get")
		if err != nil {
			return fmt.Errorf("failed to fetch reports for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("report API error %d: %s", resp.StatusCode(), resp.String())
		}

		var env struct {
			Result *struct {
				Data []reportRow `json:"data"`
			} `json:"result"`
		}
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return fmt.Errorf("failed to parse report response: %w", err)
		}
		if env.Result != nil {
			rows = env.Result.Data
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ec.cache.Set("eastmoney", "reports", symbol, rows)
	return rows, nil
}

func (ec *EastmoneyClient) GetFinancial(ctx context.Context, symbol string) (*FinancialData, error) {
	symbol = NormalizeSymbol(symbol)

	info, err := ec.GetStockInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}
	rows, err := ec.fetchReports(ctx, symbol)
	if err != nil {
		return nil, err
	}

	ratios := map[string]string{
		"市盈率":  fmt.Sprintf("%.2f", asFloat(info["pe_ratio"])),
		"市净率":  fmt.Sprintf("%.2f", asFloat(info["pb_ratio"])),
		"总市值":  formatYi(asFloat(info["market_cap"])),
		"流通市值": formatYi(asFloat(info["float_cap"])),
		"每股收益": fmt.Sprintf("%.3f元", asFloat(info["eps"])),
		"每股净资产": fmt.Sprintf("%.2f元", asFloat(info["bps"])),
	}
	if len(rows) > 0 {
		latest := rows[0]
		ratios["净资产收益率"] = fmt.Sprintf("%.2f%%", latest.ROE)
		ratios["毛利率"] = fmt.Sprintf("%.2f%%", latest.GrossPct)
		ratios["净利率"] = fmt.Sprintf("%.2f%%", latest.NetPct)
		ratios["营业收入同比增长"] = fmt.Sprintf("%.2f%%", latest.RevenueYoY)
		ratios["净利润同比增长"] = fmt.Sprintf("%.2f%%", latest.ProfitYoY)
	}

	return &FinancialData{Ratios: ratios}, nil
}

func (ec *EastmoneyClient) GetQuarterly(ctx context.Context, symbol string) (*QuarterlyData, error) {
	symbol = NormalizeSymbol(symbol)

	rows, err := ec.fetchReports(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	reports := make([]QuarterlyReport, 0, len(rows))
	for _, r := range rows {
		period := r.ReportDate
		if len(period) >= 10 {
			period = period[:10]
		}
		reports = append(reports, QuarterlyReport{
			Period:     period,
			Revenue:    formatYi(r.Revenue),
			RevenueYoY: fmt.Sprintf("%.2f%%", r.RevenueYoY),
			NetProfit:  formatYi(r.NetProfit),
			ProfitYoY:  fmt.Sprintf("%.2f%%", r.ProfitYoY),
			EPS:        fmt.Sprintf("%.3f元", r.BasicEPS),
			ROE:        fmt.Sprintf("%.2f%%", r.ROE),
		})
	}
	return &QuarterlyData{Reports: reports}, nil
}

func (ec *EastmoneyClient) GetFundFlow(ctx context.Context, symbol string, days int) (*FundFlowData, error) {
	symbol = NormalizeSymbol(symbol)
	if days <= 0 {
		days = 10
	}

	cacheKey := map[string]interface{}{"symbol": symbol, "days": days}
	var cached FundFlowData
	if ec.cache.Get("eastmoney", "fflow", cacheKey, &cached) {
		return &cached, nil
	}

	var result *FundFlowData
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := ec.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"secid":   secID(symbol),
				"klt":     "101",
				"lmt":     strconv.Itoa(days),
				"fields1": "f1,f2,f3,f7",
				"fields2": "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61,f62,f63,f64,f65",
			}).
			Get("https://push2his.eastmoney.com/api/qt/stock/fflow/daykline/get")
		if err != nil {
			return fmt.Errorf("failed to fetch fund flow for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("fund flow API error %d: %s", resp.StatusCode(), resp.String())
		}

		var env push2Envelope
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return fmt.Errorf("failed to parse fund flow response: %w", err)
		}
		if len(env.Data) == 0 || string(env.Data) == "null" {
			result = nil
			return nil
		}
		var data struct {
			Klines []string `json:"klines"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fmt.Errorf("failed to parse fund flow rows: %w", err)
		}

		days := make([]FundFlowDay, 0, len(data.Klines))
		for _, row := range data.Klines {
			// date,mainNet,smallNet,mediumNet,largeNet,superNet,mainPct,...
			parts := strings.Split(row, ",")
			if len(parts) < 7 {
				continue
			}
			mainNet, _ := decimal.NewFromString(parts[1])
			smallNet, _ := decimal.NewFromString(parts[2])
			mediumNet, _ := decimal.NewFromString(parts[3])
			largeNet, _ := decimal.NewFromString(parts[4])
			superNet, _ := decimal.NewFromString(parts[5])
			mainPct, _ := strconv.ParseFloat(parts[6], 64)
			days = append(days, FundFlowDay{
				Date:       parts[0],
				MainNet:    mainNet,
				SuperNet:   superNet,
				LargeNet:   largeNet,
				MediumNet:  mediumNet,
				SmallNet:   smallNet,
				MainNetPct: mainPct,
			})
		}
		if len(days) == 0 {
			result = nil
			return nil
		}
		result = &FundFlowData{Days: days}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	ec.cache.Set("eastmoney", "fflow", cacheKey, result)
	return result, nil
}

// GetNews scrapes the Eastmoney news search page. Headlines only, newest
// first; an empty page is "no data", not an error.
func (ec *EastmoneyClient) GetNews(ctx context.Context, symbol string, limit int) (*NewsData, error) {
	symbol = NormalizeSymbol(symbol)
	if limit <= 0 {
		limit = 10
	}

	cacheKey := map[string]interface{}{"symbol": symbol, "limit": limit}
	var cached NewsData
	if ec.cache.Get("eastmoney", "news", cacheKey, &cached) {
		return &cached, nil
	}

	var items []NewsItem
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := ec.client.R().
			SetContext(ctx).
			SetQueryParam("keyword", symbol).
			Get("https://so.eastmoney.com/news/s")
		if err != nil {
			return fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("news page error %d", resp.StatusCode())
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
		if err != nil {
			return fmt.Errorf("failed to parse news page: %w", err)
		}

		items = items[:0]
		doc.Find(".news_item").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			link := s.Find(".news_item_t a").First()
			title := strings.TrimSpace(link.Text())
			if title == "" {
				return true
			}
			href, _ := link.Attr("href")
			digest := strings.TrimSpace(s.Find(".news_item_c").First().Text())
			meta := strings.TrimSpace(s.Find(".news_item_time").First().Text())

			items = append(items, NewsItem{
				Title:  title,
				Source: "东方财富",
				Time:   meta,
				Digest: digest,
				URL:    href,
			})
			return len(items) < limit
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	result := &NewsData{Items: items}
	ec.cache.Set("eastmoney", "news", cacheKey, result)
	return result, nil
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

// formatYi renders a 元 amount in 亿元.
func formatYi(v float64) string {
	return fmt.Sprintf("%.2f亿", v/1e8)
}
