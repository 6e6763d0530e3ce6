// Package strategy turns natural-language prompts into a canonical,
// machine-evaluable trading rule and evaluates that rule bar-by-bar
// against a candle series.
package strategy

import (
	"fmt"
	"strings"
)

// ConditionKind enumerates the signal conditions a rule can express.
type ConditionKind string

const (
	// CondMACDGoldenCross fires when the MACD histogram crosses zero upward.
	CondMACDGoldenCross ConditionKind = "macd_golden_cross"
	// CondMACDDeathCross fires when the MACD histogram crosses zero downward.
	CondMACDDeathCross ConditionKind = "macd_death_cross"
	// CondSMACrossAbove fires when the fast SMA crosses above the slow SMA.
	CondSMACrossAbove ConditionKind = "sma_cross_above"
	// CondSMACrossBelow fires when the fast SMA crosses below the slow SMA.
	CondSMACrossBelow ConditionKind = "sma_cross_below"
	// CondPriceCrossAboveSMA fires when the close crosses above the fast SMA.
	CondPriceCrossAboveSMA ConditionKind = "price_cross_above_sma"
	// CondPriceCrossBelowSMA fires when the close crosses below the fast SMA.
	CondPriceCrossBelowSMA ConditionKind = "price_cross_below_sma"
)

// Condition is one evaluable signal condition.
type Condition struct {
	Kind ConditionKind `json:"kind"`
}

// Rule is the canonical strategy representation (the DSL). Conditions are
// evaluable purely from indicator state at a bar index; no lookahead.
type Rule struct {
	Symbol     string    `json:"symbol"`
	FastWindow int       `json:"fastWindow"`
	SlowWindow int       `json:"slowWindow"`
	MACDFast   int       `json:"macdFast"`
	MACDSlow   int       `json:"macdSlow"`
	MACDSignal int       `json:"macdSignal"`
	Entry      Condition `json:"entry"`
	Exit       Condition `json:"exit"`
	// SizingFraction is the fraction of current equity deployed on entry.
	SizingFraction float64 `json:"sizingFraction"`
}

// Default returns the fallback rule used when a prompt contains no
// recognizable pattern: MACD golden/death cross on BTC, full allocation.
func Default() Rule {
	return Rule{
		Symbol:         "BTC",
		FastWindow:     50,
		SlowWindow:     200,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		Entry:          Condition{Kind: CondMACDGoldenCross},
		Exit:           Condition{Kind: CondMACDDeathCross},
		SizingFraction: 1.0,
	}
}

// Validate reports whether the rule's windows can drive a simulation.
func (r Rule) Validate() error {
	for _, w := range []struct {
		name string
		v    int
	}{
		{"fast window", r.FastWindow},
		{"slow window", r.SlowWindow},
		{"macd fast", r.MACDFast},
		{"macd slow", r.MACDSlow},
		{"macd signal", r.MACDSignal},
	} {
		if w.v < 1 {
			return fmt.Errorf("%s must be positive, got %d", w.name, w.v)
		}
	}
	if r.SizingFraction <= 0 || r.SizingFraction > 1 {
		return fmt.Errorf("sizing fraction must be in (0, 1], got %g", r.SizingFraction)
	}
	return nil
}

// Describe returns a human-readable name for a condition, used for trade
// reasons and step logs.
func (c Condition) Describe(r Rule) string {
	switch c.Kind {
	case CondMACDGoldenCross:
		return fmt.Sprintf("MACD(%d,%d,%d) golden cross", r.MACDFast, r.MACDSlow, r.MACDSignal)
	case CondMACDDeathCross:
		return fmt.Sprintf("MACD(%d,%d,%d) death cross", r.MACDFast, r.MACDSlow, r.MACDSignal)
	case CondSMACrossAbove:
		return fmt.Sprintf("SMA(%d) crossed above SMA(%d)", r.FastWindow, r.SlowWindow)
	case CondSMACrossBelow:
		return fmt.Sprintf("SMA(%d) crossed below SMA(%d)", r.FastWindow, r.SlowWindow)
	case CondPriceCrossAboveSMA:
		return fmt.Sprintf("price crossed above SMA(%d)", r.FastWindow)
	case CondPriceCrossBelowSMA:
		return fmt.Sprintf("price crossed below SMA(%d)", r.FastWindow)
	default:
		return string(c.Kind)
	}
}

// RenderDSL renders the rule as the textual DSL artifact attached to a
// completed run.
func RenderDSL(r Rule, prompt string) string {
	var b strings.Builder
	b.WriteString("# Vibe Strategy DSL v1\n")
	if prompt != "" {
		b.WriteString(fmt.Sprintf("# prompt: %q\n", prompt))
	}
	b.WriteString("\nstrategy:\n")
	b.WriteString(fmt.Sprintf("  symbol: %s\n", r.Symbol))
	b.WriteString("  indicators:\n")
	b.WriteString(fmt.Sprintf("    sma: {fast: %d, slow: %d}\n", r.FastWindow, r.SlowWindow))
	b.WriteString(fmt.Sprintf("    macd: {fast: %d, slow: %d, signal: %d}\n", r.MACDFast, r.MACDSlow, r.MACDSignal))
	b.WriteString(fmt.Sprintf("  entry: %s\n", r.Entry.Kind))
	b.WriteString(fmt.Sprintf("  exit: %s\n", r.Exit.Kind))
	b.WriteString(fmt.Sprintf("  sizing: {fraction: %.2f}\n", r.SizingFraction))
	return b.String()
}
