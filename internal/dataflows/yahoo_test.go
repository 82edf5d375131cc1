package dataflows

import (
	"context"
	"os"
	"testing"
)

func TestYahooGetStockInfo(t *testing.T) {
	if os.Getenv("YAHOO_NETWORK_TEST") == "" {
		t.Skip("Skipping test, set YAHOO_NETWORK_TEST=1 to hit Yahoo Finance")
	}

	client := NewYahooClient(t.TempDir(), false)
	ctx := context.Background()

	info, err := client.GetStockInfo(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetStockInfo failed: %v", err)
	}

	if info["symbol"] != "AAPL" {
		t.Errorf("unexpected symbol %v", info["symbol"])
	}
	if price, ok := info["current_price"].(float64); !ok || price <= 0 {
		t.Errorf("expected positive current_price, got %v", info["current_price"])
	}
	// 估值字段来自 equity 接口
	for _, key := range []string{"pe_ratio", "market_cap", "eps"} {
		if _, ok := info[key]; !ok {
			t.Errorf("missing %s in stock info", key)
		}
	}

	t.Logf("Name: %v", info["name"])
	t.Logf("Price: %v", info["current_price"])
	t.Logf("PE: %v", info["pe_ratio"])
}

func TestYahooGetKlines(t *testing.T) {
	if os.Getenv("YAHOO_NETWORK_TEST") == "" {
		t.Skip("Skipping test, set YAHOO_NETWORK_TEST=1 to hit Yahoo Finance")
	}

	client := NewYahooClient(t.TempDir(), false)
	ctx := context.Background()

	klines, err := client.GetKlines(ctx, "AAPL", 30)
	if err != nil {
		t.Fatalf("GetKlines failed: %v", err)
	}
	if len(klines) == 0 {
		t.Fatal("expected non-empty kline series")
	}
	if len(klines) > 30 {
		t.Errorf("expected at most 30 klines, got %d", len(klines))
	}
	last := klines[len(klines)-1]
	if last.Close.IsZero() {
		t.Errorf("last kline has zero close: %+v", last)
	}
}
