package dataflows

import (
	"math"
)

// ComputeIndicators derives the latest technical indicator snapshot from a
// daily kline series (oldest first). Indicators whose lookback exceeds the
// series length are simply absent from the map.
func ComputeIndicators(klines []Kline) map[string]float64 {
	ind := make(map[string]float64)
	if len(klines) == 0 {
		return ind
	}

	closes := make([]float64, len(klines))
	highs := make([]float64, len(klines))
	lows := make([]float64, len(klines))
	for i, k := range klines {
		closes[i], _ = k.Close.Float64()
		highs[i], _ = k.High.Float64()
		lows[i], _ = k.Low.Float64()
	}

	last := len(klines) - 1
	ind["close"] = closes[last]
	ind["turnover_rate"] = klines[last].TurnoverRate
	if last > 0 && closes[last-1] != 0 {
		ind["change_percent"] = (closes[last] - closes[last-1]) / closes[last-1] * 100
	}

	for _, period := range []int{5, 10, 20, 60} {
		if ma, ok := sma(closes, period); ok {
			ind[maKey(period)] = ma
		}
	}

	if rsi, ok := rsi14(closes); ok {
		ind["rsi"] = rsi
	}

	if macd, signal, ok := macdLine(closes); ok {
		ind["macd"] = macd
		ind["macd_signal"] = signal
	}

	if mid, ok := sma(closes, 20); ok {
		std := stdDev(closes[len(closes)-20:], mid)
		ind["bb_upper"] = mid + 2*std
		ind["bb_lower"] = mid - 2*std
	}

	if k, d, ok := kdj(highs, lows, closes); ok {
		ind["k_value"] = k
		ind["d_value"] = d
	}

	if ratio, ok := volumeRatio(klines); ok {
		ind["volume_ratio"] = ratio
	}

	// 52周高低用可得区间（至多250根）近似
	window := len(klines)
	if window > 250 {
		window = 250
	}
	hi, lo := highs[len(highs)-window], lows[len(lows)-window]
	for i := len(klines) - window; i < len(klines); i++ {
		hi = math.Max(hi, highs[i])
		lo = math.Min(lo, lows[i])
	}
	ind["high_52w"] = hi
	ind["low_52w"] = lo

	return ind
}

func maKey(period int) string {
	switch period {
	case 5:
		return "ma5"
	case 10:
		return "ma10"
	case 20:
		return "ma20"
	default:
		return "ma60"
	}
}

func sma(values []float64, period int) (float64, bool) {
	if len(values) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

func stdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// rsi14 is the Wilder-smoothed 14-day RSI.
func rsi14(closes []float64) (float64, bool) {
	const period = 14
	if len(closes) < period+1 {
		return 0, false
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= period
	avgLoss /= period

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(period-1) + gain) / period
		avgLoss = (avgLoss*(period-1) + loss) / period
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

func emaSeries(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	multiplier := 2.0 / (float64(period) + 1.0)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)

	out := make([]float64, len(values))
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}
	out[period-1] = ema
	for i := period; i < len(values); i++ {
		ema = values[i]*multiplier + ema*(1-multiplier)
		out[i] = ema
	}
	return out
}

// macdLine returns the latest MACD(12,26,9) DIF and signal (DEA) values.
func macdLine(closes []float64) (macd, signal float64, ok bool) {
	const (
		fast       = 12
		slow       = 26
		signalSpan = 9
	)
	if len(closes) < slow+signalSpan {
		return 0, 0, false
	}

	emaFast := emaSeries(closes, fast)
	emaSlow := emaSeries(closes, slow)

	dif := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		dif = append(dif, emaFast[i]-emaSlow[i])
	}
	dea := emaSeries(dif, signalSpan)
	if dea == nil {
		return 0, 0, false
	}
	return dif[len(dif)-1], dea[len(dea)-1], true
}

// kdj returns the latest K and D values of KDJ(9,3,3).
func kdj(highs, lows, closes []float64) (k, d float64, ok bool) {
	const period = 9
	if len(closes) < period {
		return 0, 0, false
	}

	k, d = 50, 50
	for i := period - 1; i < len(closes); i++ {
		hi, lo := highs[i], lows[i]
		for j := i - period + 1; j <= i; j++ {
			hi = math.Max(hi, highs[j])
			lo = math.Min(lo, lows[j])
		}
		rsv := 50.0
		if hi != lo {
			rsv = (closes[i] - lo) / (hi - lo) * 100
		}
		k = k*2/3 + rsv/3
		d = d*2/3 + k/3
	}
	return k, d, true
}

// volumeRatio is today's volume against the 5-day average before today.
func volumeRatio(klines []Kline) (float64, bool) {
	if len(klines) < 6 {
		return 0, false
	}
	sum := int64(0)
	for _, k := range klines[len(klines)-6 : len(klines)-1] {
		sum += k.Volume
	}
	if sum == 0 {
		return 0, false
	}
	avg := float64(sum) / 5
	return float64(klines[len(klines)-1].Volume) / avg, true
}

const arbrWindow = 26

// ComputeSentiment derives the ARBR market sentiment reading from the price
// series. Returns nil when the series is too short.
func ComputeSentiment(klines []Kline) *SentimentData {
	if len(klines) < arbrWindow+1 {
		return nil
	}

	window := klines[len(klines)-arbrWindow:]
	prevClose, _ := klines[len(klines)-arbrWindow-1].Close.Float64()

	var arUp, arDown, brUp, brDown float64
	for _, k := range window {
		open, _ := k.Open.Float64()
		high, _ := k.High.Float64()
		low, _ := k.Low.Float64()
		cls, _ := k.Close.Float64()

		arUp += high - open
		arDown += open - low
		brUp += math.Max(0, high-prevClose)
		brDown += math.Max(0, prevClose-low)
		prevClose = cls
	}

	ar, br := 100.0, 100.0
	if arDown != 0 {
		ar = arUp / arDown * 100
	}
	if brDown != 0 {
		br = brUp / brDown * 100
	}

	phase := "情绪中性，多空力量均衡"
	switch {
	case ar > 150 && br > 150:
		phase = "情绪过热，警惕回调风险"
	case ar > 120:
		phase = "人气偏强，买盘活跃"
	case ar < 70 && br < 70:
		phase = "情绪低迷，可能接近底部区域"
	case ar < 90:
		phase = "人气偏弱，观望氛围较浓"
	}

	return &SentimentData{
		AR:     ar,
		BR:     br,
		Window: arbrWindow,
		Phase:  phase,
	}
}

const tradingDaysPerYear = 242

// ComputeRisk derives volatility and drawdown statistics from the price
// series. Returns nil when the series is too short.
func ComputeRisk(klines []Kline) *RiskData {
	if len(klines) < 21 {
		return nil
	}

	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i], _ = k.Close.Float64()
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns = append(returns, closes[i]/closes[i-1]-1)
		}
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	vol := stdDev(returns, mean) * math.Sqrt(tradingDaysPerYear) * 100

	peak := closes[0]
	maxDrawdown := 0.0
	for _, c := range closes {
		peak = math.Max(peak, c)
		if peak != 0 {
			dd := (peak - c) / peak * 100
			maxDrawdown = math.Max(maxDrawdown, dd)
		}
	}

	var flags []string
	if vol > 50 {
		flags = append(flags, "年化波动率超过50%，价格波动剧烈")
	}
	if maxDrawdown > 30 {
		flags = append(flags, "区间最大回撤超过30%，下行风险较大")
	}

	return &RiskData{
		AnnualVolatility: vol,
		MaxDrawdown:      maxDrawdown,
		Flags:            flags,
	}
}
