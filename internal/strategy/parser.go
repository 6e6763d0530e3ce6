package strategy

import (
	"regexp"
	"strconv"
	"strings"
)

// A matcher inspects the lowercased prompt and refines the rule in place.
// It reports whether it recognized anything. Matchers are best-effort
// heuristics: an ambiguous prompt simply falls through to the default rule
// rather than raising an error.
type matcher func(prompt string, r *Rule) bool

var (
	smaCallRe = regexp.MustCompile(`(?:sma|ma)\s*\(?\s*(\d+)\s*\)?`)
	dayPairRe = regexp.MustCompile(`(\d+)[- ]day`)
	pctRe     = regexp.MustCompile(`(\d+)\s*%`)
)

var matchers = []matcher{
	matchSymbol,
	matchWindows,
	matchMACDCross,
	matchSMACross,
	matchPriceVsSMA,
	matchSizing,
}

// ParseFromPrompt parses a natural-language prompt into a canonical rule.
// It runs a fixed chain of pattern matchers over the prompt; whatever no
// matcher recognizes keeps its default, so the result is always runnable.
func ParseFromPrompt(prompt string) Rule {
	rule := Default()
	lower := strings.ToLower(prompt)
	for _, m := range matchers {
		m(lower, &rule)
	}
	return rule
}

func matchSymbol(prompt string, r *Rule) bool {
	for _, sym := range []string{"tqqq", "sqqq", "qqq", "spy", "btc", "eth", "sol"} {
		if strings.Contains(prompt, sym) {
			r.Symbol = strings.ToUpper(sym)
			return true
		}
	}
	return false
}

// matchWindows extracts explicit window lengths: "sma(3)", "ma5",
// "50-day ... 200-day". The first value becomes the fast window; a second
// distinct value becomes the slow window.
func matchWindows(prompt string, r *Rule) bool {
	days := dayPairRe.FindAllStringSubmatch(prompt, 2)
	if len(days) > 0 {
		r.FastWindow, _ = strconv.Atoi(days[0][1])
		if len(days) > 1 {
			r.SlowWindow, _ = strconv.Atoi(days[1][1])
		}
		return true
	}
	if m := smaCallRe.FindStringSubmatch(prompt); m != nil {
		r.FastWindow, _ = strconv.Atoi(m[1])
		return true
	}
	return false
}

func matchMACDCross(prompt string, r *Rule) bool {
	if !strings.Contains(prompt, "macd") {
		return false
	}
	golden := strings.Contains(prompt, "golden")
	death := strings.Contains(prompt, "death")
	if !golden && !death {
		return false
	}
	r.Entry = Condition{Kind: CondMACDGoldenCross}
	r.Exit = Condition{Kind: CondMACDDeathCross}
	return true
}

// matchSMACross recognizes moving-average crossover phrasing without MACD,
// e.g. "50-day MA crosses above the 200-day MA" or "golden cross".
func matchSMACross(prompt string, r *Rule) bool {
	if strings.Contains(prompt, "macd") {
		return false
	}
	crossy := strings.Contains(prompt, "crosses above") ||
		strings.Contains(prompt, "crosses below") ||
		strings.Contains(prompt, "ma cross") ||
		strings.Contains(prompt, "golden cross") ||
		strings.Contains(prompt, "death cross")
	if !crossy || !strings.Contains(prompt, "ma") {
		return false
	}
	r.Entry = Condition{Kind: CondSMACrossAbove}
	r.Exit = Condition{Kind: CondSMACrossBelow}
	return true
}

// matchPriceVsSMA recognizes price-versus-moving-average rules,
// e.g. "SMA(3) crossing price" or "price above MA5".
func matchPriceVsSMA(prompt string, r *Rule) bool {
	hasSMA := smaCallRe.MatchString(prompt)
	if !hasSMA || strings.Contains(prompt, "macd") {
		return false
	}
	if !strings.Contains(prompt, "price") && !strings.Contains(prompt, "crossing") &&
		!strings.Contains(prompt, "above") && !strings.Contains(prompt, "below") {
		return false
	}
	if strings.Contains(prompt, "below") && !strings.Contains(prompt, "above") {
		r.Entry = Condition{Kind: CondPriceCrossBelowSMA}
		r.Exit = Condition{Kind: CondPriceCrossAboveSMA}
	} else {
		r.Entry = Condition{Kind: CondPriceCrossAboveSMA}
		r.Exit = Condition{Kind: CondPriceCrossBelowSMA}
	}
	return true
}

func matchSizing(prompt string, r *Rule) bool {
	m := pctRe.FindStringSubmatch(prompt)
	if m == nil {
		return false
	}
	pct, _ := strconv.Atoi(m[1])
	if pct < 1 || pct > 100 {
		return false
	}
	r.SizingFraction = float64(pct) / 100
	return true
}
