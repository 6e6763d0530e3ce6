package strategy

import (
	"github.com/vibetrading/sim-backend/internal/marketdata"
	"github.com/vibetrading/sim-backend/pkg/types"
)

// Evaluator precomputes the indicators a rule needs and answers
// entry/exit questions at a bar index. All answers derive from indicator
// state at or before that index; lookahead is impossible by construction.
type Evaluator struct {
	rule    Rule
	candles []types.Candle
	smaFast types.IndicatorSeries
	smaSlow types.IndicatorSeries
	macd    marketdata.MACDResult
}

// NewEvaluator builds an evaluator for rule over candles.
func NewEvaluator(rule Rule, candles []types.Candle) *Evaluator {
	return &Evaluator{
		rule:    rule,
		candles: candles,
		smaFast: marketdata.SMA(candles, rule.FastWindow),
		smaSlow: marketdata.SMA(candles, rule.SlowWindow),
		macd:    marketdata.MACD(candles, rule.MACDFast, rule.MACDSlow, rule.MACDSignal),
	}
}

// Warmup returns the first bar index with sufficient indicator history for
// both the entry and the exit condition.
func (e *Evaluator) Warmup() int {
	w := e.conditionWarmup(e.rule.Entry)
	if x := e.conditionWarmup(e.rule.Exit); x > w {
		w = x
	}
	return w
}

func (e *Evaluator) conditionWarmup(c Condition) int {
	switch c.Kind {
	case CondMACDGoldenCross, CondMACDDeathCross:
		// Histogram needs the slow EMA plus the signal EMA window, and
		// crossing needs one defined bar before that.
		return e.rule.MACDSlow + e.rule.MACDSignal
	case CondSMACrossAbove, CondSMACrossBelow:
		w := e.rule.FastWindow
		if e.rule.SlowWindow > w {
			w = e.rule.SlowWindow
		}
		return w
	default:
		return e.rule.FastWindow
	}
}

// EntryAt evaluates the rule's entry condition at bar i.
func (e *Evaluator) EntryAt(i int) bool {
	return e.holds(e.rule.Entry, i)
}

// ExitAt evaluates the rule's exit condition at bar i.
func (e *Evaluator) ExitAt(i int) bool {
	return e.holds(e.rule.Exit, i)
}

func (e *Evaluator) holds(c Condition, i int) bool {
	if i < 1 || i >= len(e.candles) {
		return false
	}
	switch c.Kind {
	case CondMACDGoldenCross:
		return marketdata.IsGoldenCross(e.macd.Histogram, i)
	case CondMACDDeathCross:
		return marketdata.IsDeathCross(e.macd.Histogram, i)
	case CondSMACrossAbove:
		return e.smaCross(i, true)
	case CondSMACrossBelow:
		return e.smaCross(i, false)
	case CondPriceCrossAboveSMA:
		return e.priceCross(i, true)
	case CondPriceCrossBelowSMA:
		return e.priceCross(i, false)
	default:
		return false
	}
}

func (e *Evaluator) smaCross(i int, above bool) bool {
	pf, ok1 := e.smaFast.At(i - 1)
	ps, ok2 := e.smaSlow.At(i - 1)
	cf, ok3 := e.smaFast.At(i)
	cs, ok4 := e.smaSlow.At(i)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	if above {
		return pf <= ps && cf > cs
	}
	return pf >= ps && cf < cs
}

func (e *Evaluator) priceCross(i int, above bool) bool {
	pm, ok1 := e.smaFast.At(i - 1)
	cm, ok2 := e.smaFast.At(i)
	if !ok1 || !ok2 {
		return false
	}
	prev, cur := e.candles[i-1].Close, e.candles[i].Close
	if above {
		return prev <= pm && cur > cm
	}
	return prev >= pm && cur < cm
}
