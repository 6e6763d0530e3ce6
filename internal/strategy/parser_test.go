// Package strategy_test provides tests for the prompt parser and rule
// evaluation.
package strategy_test

import (
	"strings"
	"testing"
	"time"

	"github.com/vibetrading/sim-backend/internal/marketdata"
	"github.com/vibetrading/sim-backend/internal/strategy"
)

func TestParseDefaultFallback(t *testing.T) {
	rule := strategy.ParseFromPrompt("do something clever")

	def := strategy.Default()
	if rule.Symbol != def.Symbol {
		t.Errorf("Expected default symbol %s, got %s", def.Symbol, rule.Symbol)
	}
	if rule.Entry.Kind != strategy.CondMACDGoldenCross {
		t.Errorf("Expected MACD golden cross entry, got %s", rule.Entry.Kind)
	}
	if rule.Exit.Kind != strategy.CondMACDDeathCross {
		t.Errorf("Expected MACD death cross exit, got %s", rule.Exit.Kind)
	}
	if rule.SizingFraction != 1.0 {
		t.Errorf("Expected full allocation, got %v", rule.SizingFraction)
	}
	if err := rule.Validate(); err != nil {
		t.Errorf("Default rule should validate: %v", err)
	}
}

func TestParseSymbol(t *testing.T) {
	cases := map[string]string{
		"buy TQQQ on a dip":            "TQQQ",
		"macd strategy for eth":        "ETH",
		"momentum on SPY please":       "SPY",
		"something about qqq momentum": "QQQ",
	}
	for prompt, want := range cases {
		rule := strategy.ParseFromPrompt(prompt)
		if rule.Symbol != want {
			t.Errorf("Prompt %q: expected symbol %s, got %s", prompt, want, rule.Symbol)
		}
	}
}

func TestParseMACDCross(t *testing.T) {
	rule := strategy.ParseFromPrompt("Buy ETH on MACD golden cross, sell on death cross")
	if rule.Symbol != "ETH" {
		t.Errorf("Expected ETH, got %s", rule.Symbol)
	}
	if rule.Entry.Kind != strategy.CondMACDGoldenCross {
		t.Errorf("Expected MACD golden cross entry, got %s", rule.Entry.Kind)
	}
	if rule.Exit.Kind != strategy.CondMACDDeathCross {
		t.Errorf("Expected MACD death cross exit, got %s", rule.Exit.Kind)
	}
}

func TestParseSMACross(t *testing.T) {
	rule := strategy.ParseFromPrompt("Enter when the 50-day MA crosses above the 200-day MA on SPY")
	if rule.Entry.Kind != strategy.CondSMACrossAbove {
		t.Errorf("Expected SMA cross above entry, got %s", rule.Entry.Kind)
	}
	if rule.Exit.Kind != strategy.CondSMACrossBelow {
		t.Errorf("Expected SMA cross below exit, got %s", rule.Exit.Kind)
	}
	if rule.FastWindow != 50 || rule.SlowWindow != 200 {
		t.Errorf("Expected windows 50/200, got %d/%d", rule.FastWindow, rule.SlowWindow)
	}
}

func TestParsePriceVsSMA(t *testing.T) {
	rule := strategy.ParseFromPrompt("SMA(3) crossing price on TQQQ")
	if rule.Symbol != "TQQQ" {
		t.Errorf("Expected TQQQ, got %s", rule.Symbol)
	}
	if rule.FastWindow != 3 {
		t.Errorf("Expected fast window 3, got %d", rule.FastWindow)
	}
	if rule.Entry.Kind != strategy.CondPriceCrossAboveSMA {
		t.Errorf("Expected price cross above entry, got %s", rule.Entry.Kind)
	}
	if rule.Exit.Kind != strategy.CondPriceCrossBelowSMA {
		t.Errorf("Expected price cross below exit, got %s", rule.Exit.Kind)
	}
}

func TestParseSizing(t *testing.T) {
	rule := strategy.ParseFromPrompt("macd golden cross on btc with 25% of equity")
	if rule.SizingFraction != 0.25 {
		t.Errorf("Expected sizing 0.25, got %v", rule.SizingFraction)
	}
}

func TestParseCaseInsensitive(t *testing.T) {
	a := strategy.ParseFromPrompt("MACD GOLDEN CROSS ON BTC")
	b := strategy.ParseFromPrompt("macd golden cross on btc")
	if a != b {
		t.Errorf("Parsing should be case-insensitive: %+v vs %+v", a, b)
	}
}

func TestRenderDSL(t *testing.T) {
	rule := strategy.ParseFromPrompt("SMA(3) crossing price on TQQQ")
	dsl := strategy.RenderDSL(rule, "SMA(3) crossing price on TQQQ")

	for _, token := range []string{"TQQQ", "entry:", "exit:", "sizing:"} {
		if !strings.Contains(dsl, token) {
			t.Errorf("DSL missing %q:\n%s", token, dsl)
		}
	}
}

func TestValidateRejectsBadWindows(t *testing.T) {
	rule := strategy.Default()
	rule.FastWindow = 0
	if err := rule.Validate(); err == nil {
		t.Error("Expected validation error for zero window")
	}

	rule = strategy.Default()
	rule.SizingFraction = 1.5
	if err := rule.Validate(); err == nil {
		t.Error("Expected validation error for oversized allocation")
	}
}

func TestEvaluatorWarmup(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	candles, err := marketdata.Generate("BTC", start, end, "warmup")
	if err != nil {
		t.Fatalf("Failed to generate candles: %v", err)
	}

	rule := strategy.Default()
	eval := strategy.NewEvaluator(rule, candles)
	warmup := eval.Warmup()
	if warmup != rule.MACDSlow+rule.MACDSignal {
		t.Errorf("Expected MACD warmup %d, got %d", rule.MACDSlow+rule.MACDSignal, warmup)
	}

	rule.Entry = strategy.Condition{Kind: strategy.CondSMACrossAbove}
	rule.Exit = strategy.Condition{Kind: strategy.CondSMACrossBelow}
	rule.FastWindow, rule.SlowWindow = 5, 20
	eval = strategy.NewEvaluator(rule, candles)
	if eval.Warmup() != 20 {
		t.Errorf("Expected SMA warmup 20, got %d", eval.Warmup())
	}
}

func TestEvaluatorEntryExitNeverBothTrue(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	candles, err := marketdata.Generate("ETH", start, end, "cross-check")
	if err != nil {
		t.Fatalf("Failed to generate candles: %v", err)
	}

	eval := strategy.NewEvaluator(strategy.Default(), candles)
	for i := eval.Warmup(); i < len(candles); i++ {
		if eval.EntryAt(i) && eval.ExitAt(i) {
			t.Fatalf("Entry and exit both fired at bar %d", i)
		}
	}
}
