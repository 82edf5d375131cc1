package dataflows

import (
	"errors"
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Hour, true)

	stored := map[string]string{"symbol": "600036", "name": "招商银行"}
	if err := cm.Set("test", "quote", "600036", stored); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var loaded map[string]string
	if !cm.Get("test", "quote", "600036", &loaded) {
		t.Fatal("expected cache hit")
	}
	if loaded["name"] != "招商银行" {
		t.Fatalf("loaded = %v", loaded)
	}

	// different params miss
	if cm.Get("test", "quote", "000001", &loaded) {
		t.Fatal("different params must miss")
	}
}

func TestCacheDisabled(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Hour, false)
	if err := cm.Set("test", "quote", "600036", "x"); err != nil {
		t.Fatalf("Set on disabled cache: %v", err)
	}
	var out string
	if cm.Get("test", "quote", "600036", &out) {
		t.Fatal("disabled cache must always miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), 1*time.Nanosecond, true)
	if err := cm.Set("test", "quote", "600036", "x"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var out string
	if cm.Get("test", "quote", "600036", &out) {
		t.Fatal("expired entry must miss")
	}
}

func TestWithRetryEventualSuccess(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2}

	attempts := 0
	err := WithRetry(cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetryExhausted(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	sentinel := errors.New("hard failure")
	err := WithRetry(cfg, func() error { return sentinel })
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapped sentinel", err)
	}
}

func TestClassifySymbol(t *testing.T) {
	cases := []struct {
		symbol string
		want   Market
	}{
		{"600036", MarketCN},
		{"000001", MarketCN},
		{"300750", MarketCN},
		{"0700", MarketHK},
		{"09988", MarketHK},
		{"0700.HK", MarketHK},
		{"AAPL", MarketUS},
		{"BRK.B", MarketUS},
		{" aapl ", MarketUS},
	}
	for _, c := range cases {
		if got := ClassifySymbol(c.symbol); got != c.want {
			t.Errorf("ClassifySymbol(%q) = %s, want %s", c.symbol, got, c.want)
		}
	}
}

func TestParseKlineRow(t *testing.T) {
	row := "2025-06-20,35.10,35.60,35.80,34.90,1234567,43800000.5,2.56,1.42,0.50,0.85"
	k, err := parseKlineRow(row)
	if err != nil {
		t.Fatalf("parseKlineRow: %v", err)
	}
	if k.Date != "2025-06-20" {
		t.Fatalf("date = %s", k.Date)
	}
	if got, _ := k.Close.Float64(); got != 35.60 {
		t.Fatalf("close = %v", got)
	}
	if k.Volume != 1234567 {
		t.Fatalf("volume = %d", k.Volume)
	}
	if k.TurnoverRate != 0.85 {
		t.Fatalf("turnover = %v", k.TurnoverRate)
	}

	if _, err := parseKlineRow("2025-06-20,35.10"); err == nil {
		t.Fatal("short row must fail")
	}
}

func TestParseQuotePayload(t *testing.T) {
	// 真实报价对象里数值和字符串字段混排，价格类字段放大了100倍
	payload := []byte(`{"f43":3520,"f44":3555,"f45":3480,"f58":"招商银行","f127":"银行","f162":612,"f170":-125,"f116":888000000000}`)

	info, err := parseQuotePayload("600036", payload)
	if err != nil {
		t.Fatalf("parseQuotePayload: %v", err)
	}
	if info["name"] != "招商银行" {
		t.Fatalf("name = %v", info["name"])
	}
	if info["industry"] != "银行" {
		t.Fatalf("industry = %v", info["industry"])
	}
	if got := info["current_price"].(float64); got != 35.20 {
		t.Fatalf("current_price = %v", got)
	}
	if got := info["pe_ratio"].(float64); got != 6.12 {
		t.Fatalf("pe_ratio = %v", got)
	}
	if got := info["change_percent"].(float64); got != -1.25 {
		t.Fatalf("change_percent = %v", got)
	}
	if got := info["market_cap"].(float64); got != 888000000000 {
		t.Fatalf("market_cap = %v", got)
	}

	if _, err := parseQuotePayload("600036", []byte("not json")); err == nil {
		t.Fatal("malformed payload must fail")
	}
}

func TestParseQuotePayloadMissingFields(t *testing.T) {
	// 停牌或无数据时东财用 "-" 占位
	payload := []byte(`{"f43":"-","f58":"某股票"}`)
	info, err := parseQuotePayload("000001", payload)
	if err != nil {
		t.Fatalf("parseQuotePayload: %v", err)
	}
	if got := info["current_price"].(float64); got != 0 {
		t.Fatalf("current_price = %v, want 0", got)
	}
	if info["name"] != "某股票" {
		t.Fatalf("name = %v", info["name"])
	}
}
