package marketdata

import (
	"github.com/vibetrading/sim-backend/pkg/types"
)

// MACDResult holds the three MACD series, each aligned to the input candles.
type MACDResult struct {
	MACDLine   types.IndicatorSeries
	SignalLine types.IndicatorSeries
	Histogram  types.IndicatorSeries
}

// SMA computes the simple moving average of closes over window bars.
// The first window-1 entries are undefined; the result always has the
// same length as the input.
func SMA(candles []types.Candle, window int) types.IndicatorSeries {
	s := newSeries(window, len(candles))
	if window < 1 {
		return s
	}

	var sum float64
	for i, c := range candles {
		sum += c.Close
		if i >= window {
			sum -= candles[i-window].Close
		}
		if i >= window-1 {
			s.Values[i] = sum / float64(window)
			s.Defined[i] = true
		}
	}
	return s
}

// EMA computes the exponential moving average of values over period bars.
// The first defined entry seeds the EMA with the simple average of the
// initial window.
func EMA(values []float64, period int) types.IndicatorSeries {
	s := newSeries(period, len(values))
	if period < 1 {
		return s
	}

	k := 2.0 / float64(period+1)
	var sum float64
	for i, v := range values {
		switch {
		case i < period-1:
			sum += v
		case i == period-1:
			sum += v
			s.Values[i] = sum / float64(period)
			s.Defined[i] = true
		default:
			s.Values[i] = v*k + s.Values[i-1]*(1-k)
			s.Defined[i] = true
		}
	}
	return s
}

// MACD computes the moving-average-convergence-divergence of closes.
// MACDLine = EMA(fast) - EMA(slow); SignalLine = EMA(MACDLine, signal)
// computed over the defined portion of the MACD line; Histogram =
// MACDLine - SignalLine.
func MACD(candles []types.Candle, fast, slow, signal int) MACDResult {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	macd := newSeries(slow, len(candles))
	var defined []float64
	firstDefined := -1
	for i := range closes {
		f, fok := emaFast.At(i)
		sl, sok := emaSlow.At(i)
		if fok && sok {
			macd.Values[i] = f - sl
			macd.Defined[i] = true
			if firstDefined < 0 {
				firstDefined = i
			}
			defined = append(defined, f-sl)
		}
	}

	// Signal line is an EMA over the defined MACD values, re-aligned to
	// the full candle index space.
	sigCompact := EMA(defined, signal)
	sig := newSeries(signal, len(candles))
	hist := newSeries(signal, len(candles))
	for j := range defined {
		if v, ok := sigCompact.At(j); ok {
			i := firstDefined + j
			sig.Values[i] = v
			sig.Defined[i] = true
			hist.Values[i] = macd.Values[i] - v
			hist.Defined[i] = true
		}
	}

	return MACDResult{MACDLine: macd, SignalLine: sig, Histogram: hist}
}

// IsGoldenCross reports whether the MACD histogram crossed zero from
// negative to positive between index i-1 and i. Undefined values at either
// index mean no signal; indices are never read out of bounds.
func IsGoldenCross(hist types.IndicatorSeries, i int) bool {
	if i < 1 {
		return false
	}
	prev, pok := hist.At(i - 1)
	cur, cok := hist.At(i)
	return pok && cok && prev <= 0 && cur > 0
}

// IsDeathCross reports whether the MACD histogram crossed zero from
// positive to negative between index i-1 and i.
func IsDeathCross(hist types.IndicatorSeries, i int) bool {
	if i < 1 {
		return false
	}
	prev, pok := hist.At(i - 1)
	cur, cok := hist.At(i)
	return pok && cok && prev >= 0 && cur < 0
}

func newSeries(window, n int) types.IndicatorSeries {
	return types.IndicatorSeries{
		Window:  window,
		Values:  make([]float64, n),
		Defined: make([]bool, n),
	}
}
