package dataflows

import (
	"fmt"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

// genKlines builds a deterministic synthetic daily series long enough for
// every indicator lookback.
func genKlines(n int) []Kline {
	klines := make([]Kline, 0, n)
	price := 100.0
	for i := 0; i < n; i++ {
		// bounded oscillation around a slow uptrend
		move := math.Sin(float64(i)/5)*2 + 0.05
		open := price
		price += move
		high := math.Max(open, price) + 0.5
		low := math.Min(open, price) - 0.5

		klines = append(klines, Kline{
			Date:         fmt.Sprintf("2025-%02d-%02d", i/28+1, i%28+1),
			Open:         decimal.NewFromFloat(open),
			High:         decimal.NewFromFloat(high),
			Low:          decimal.NewFromFloat(low),
			Close:        decimal.NewFromFloat(price),
			Volume:       1000000 + int64(i%7)*50000,
			TurnoverRate: 1.5,
		})
	}
	return klines
}

func TestComputeIndicatorsFullSeries(t *testing.T) {
	ind := ComputeIndicators(genKlines(120))

	for _, key := range []string{
		"close", "ma5", "ma10", "ma20", "ma60",
		"rsi", "macd", "macd_signal",
		"bb_upper", "bb_lower", "k_value", "d_value",
		"volume_ratio", "high_52w", "low_52w",
	} {
		v, ok := ind[key]
		if !ok {
			t.Fatalf("indicator %s missing", key)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("indicator %s is not finite: %v", key, v)
		}
	}

	if ind["rsi"] < 0 || ind["rsi"] > 100 {
		t.Fatalf("rsi out of range: %v", ind["rsi"])
	}
	if ind["bb_upper"] <= ind["bb_lower"] {
		t.Fatalf("bb_upper %v must exceed bb_lower %v", ind["bb_upper"], ind["bb_lower"])
	}
	if ind["high_52w"] < ind["low_52w"] {
		t.Fatalf("high_52w %v below low_52w %v", ind["high_52w"], ind["low_52w"])
	}
}

func TestComputeIndicatorsShortSeries(t *testing.T) {
	// 10 bars: ma5/ma10 computable, longer lookbacks absent
	ind := ComputeIndicators(genKlines(10))

	if _, ok := ind["ma5"]; !ok {
		t.Fatal("ma5 should be computable from 10 bars")
	}
	for _, key := range []string{"ma20", "ma60", "macd", "bb_upper"} {
		if _, ok := ind[key]; ok {
			t.Fatalf("indicator %s should be absent on a short series", key)
		}
	}
}

func TestComputeIndicatorsEmpty(t *testing.T) {
	ind := ComputeIndicators(nil)
	if len(ind) != 0 {
		t.Fatalf("empty series must yield empty snapshot, got %v", ind)
	}
}

func TestComputeSentiment(t *testing.T) {
	s := ComputeSentiment(genKlines(60))
	if s == nil {
		t.Fatal("sentiment should be computable from 60 bars")
	}
	if s.Window != arbrWindow {
		t.Fatalf("window = %d, want %d", s.Window, arbrWindow)
	}
	if s.AR <= 0 || s.BR < 0 {
		t.Fatalf("implausible ARBR: AR=%v BR=%v", s.AR, s.BR)
	}
	if s.Phase == "" {
		t.Fatal("phase must be set")
	}

	if got := ComputeSentiment(genKlines(10)); got != nil {
		t.Fatal("short series must yield nil sentiment")
	}
}

func TestComputeRisk(t *testing.T) {
	r := ComputeRisk(genKlines(120))
	if r == nil {
		t.Fatal("risk should be computable from 120 bars")
	}
	if r.AnnualVolatility <= 0 {
		t.Fatalf("volatility must be positive, got %v", r.AnnualVolatility)
	}
	if r.MaxDrawdown < 0 || r.MaxDrawdown > 100 {
		t.Fatalf("drawdown out of range: %v", r.MaxDrawdown)
	}

	if got := ComputeRisk(genKlines(5)); got != nil {
		t.Fatal("short series must yield nil risk data")
	}
}

func TestVolumeRatio(t *testing.T) {
	klines := genKlines(10)
	for i := range klines {
		klines[i].Volume = 1000
	}
	klines[len(klines)-1].Volume = 2000

	ratio, ok := volumeRatio(klines)
	if !ok {
		t.Fatal("volume ratio should be computable")
	}
	if math.Abs(ratio-2.0) > 1e-9 {
		t.Fatalf("ratio = %v, want 2.0", ratio)
	}
}
